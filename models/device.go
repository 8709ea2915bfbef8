// File: roomsync/models/device.go
package models

// DeviceTarget is a display identified by its hardware address.
type DeviceTarget struct {
	Room string `json:"room"`
	MAC  string `json:"mac"`
}

// Locations maps a room identifier to the addresses of its displays.
type Locations map[string][]string

// Devices resolves the displays configured for room.
func (l Locations) Devices(room string) []DeviceTarget {
	macs := l[room]
	if len(macs) == 0 {
		return nil
	}
	targets := make([]DeviceTarget, 0, len(macs))
	for _, mac := range macs {
		targets = append(targets, DeviceTarget{Room: room, MAC: mac})
	}
	return targets
}

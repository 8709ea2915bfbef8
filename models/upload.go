// File: roomsync/models/upload.go
package models

// UploadEnvelope is the body of POST /upload-schedule.
type UploadEnvelope struct {
	MAC      string           `json:"mac"`
	Schedule ScheduleEnvelope `json:"schedule"`
}

// ScheduleEnvelope carries one room's entries for one date. Each entry is
// ["HH:MM-HH:MM", description].
type ScheduleEnvelope struct {
	Room    string      `json:"room"`
	Date    string      `json:"date"`
	Entries [][2]string `json:"entries"`
}

// NewUploadEnvelope builds the upload body for mac from events that all
// belong to the same room and date. Events must already be ordered.
func NewUploadEnvelope(mac string, events []CalendarEvent) UploadEnvelope {
	entries := make([][2]string, 0, len(events))
	for _, ev := range events {
		entries = append(entries, [2]string{ev.Start + "-" + ev.End, ev.Description})
	}
	env := UploadEnvelope{MAC: mac, Schedule: ScheduleEnvelope{Entries: entries}}
	if len(events) > 0 {
		env.Schedule.Room = events[0].Room
		env.Schedule.Date = events[0].Date
	}
	return env
}

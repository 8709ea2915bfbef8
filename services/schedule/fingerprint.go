package schedule

import (
	"encoding/hex"
	"fmt"
	"sort"

	"roomsync/models"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// encMode uses Core Deterministic Encoding so equal event lists always
// produce identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("schedule: CBOR encoder initialization failed: " + err.Error())
	}
}

// Fingerprint returns the hex BLAKE3-256 digest of events. The events are
// put into a canonical order first, so feed ordering does not matter.
func Fingerprint(events []models.CalendarEvent) (string, error) {
	sorted := make([]models.CalendarEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.UID != b.UID {
			return a.UID < b.UID
		}
		return a.Description < b.Description
	})

	data, err := encMode.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("failed to encode events for fingerprint: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

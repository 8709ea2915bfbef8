// File: roomsync/models/calendar.go
package models

import (
	"fmt"
	"time"
)

// RawEvent is one component read from an iCalendar feed, before any room
// or date normalization.
type RawEvent struct {
	Type        string    `json:"type"` // e.g. "VEVENT", "VTODO"
	UID         string    `json:"uid"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
}

// CalendarEvent is a normalized schedule entry for a single room.
type CalendarEvent struct {
	UID         string `json:"uid"`
	Date        string `json:"date"`  // DD.MM.YYYY
	Start       string `json:"start"` // HH:MM
	End         string `json:"end"`   // HH:MM
	Description string `json:"description"`
	Room        string `json:"room"`
}

// CalendarSource is the per-feed schedule state kept across polling cycles.
// Events is replaced wholesale on every rebuild; Fingerprint covers only the
// events dated today at the time of that rebuild.
type CalendarSource struct {
	Class       string          `json:"class"`
	Year        int             `json:"year"`
	Section     string          `json:"section"`
	Events      []CalendarEvent `json:"events"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

// Key identifies the source in logs and results.
func (s *CalendarSource) Key() string {
	return fmt.Sprintf("%d/%s/%s", s.Year, s.Section, s.Class)
}

package schedule

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"roomsync/models"
)

const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04"

	eventComponent = "VEVENT"
)

var roomPattern = regexp.MustCompile(`Room: (\d+)`)

// ExtractRoom finds the first "Room: <digits>" in description and strips
// leading zeros from the number. A lone "0" is kept, but a longer run of
// zeros such as "00" becomes the empty string.
func ExtractRoom(description string) (string, bool) {
	m := roomPattern.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	digits := m[1]
	if len(digits) == 1 {
		return digits, true
	}
	return strings.TrimLeft(digits, "0"), true
}

// Build turns raw feed records into schedule entries in loc. Records that
// are not event occurrences or carry no room are dropped; feed order is kept.
func Build(raw []models.RawEvent, loc *time.Location) []models.CalendarEvent {
	events := make([]models.CalendarEvent, 0, len(raw))
	for _, r := range raw {
		if r.Type != eventComponent {
			continue
		}
		room, ok := ExtractRoom(r.Description)
		if !ok {
			continue
		}
		start := r.Start.In(loc)
		end := r.End.In(loc)
		events = append(events, models.CalendarEvent{
			UID:         r.UID,
			Date:        start.Format(DateLayout),
			Start:       start.Format(TimeLayout),
			End:         end.Format(TimeLayout),
			Description: r.Summary,
			Room:        room,
		})
	}
	return events
}

// Rebuild replaces the source's events with the ones built from raw and
// recomputes the fingerprint of today's subset. It reports whether the
// fingerprint differs from the one stored before.
func Rebuild(src *models.CalendarSource, raw []models.RawEvent, now time.Time, loc *time.Location) (bool, error) {
	src.Events = Build(raw, loc)

	fp, err := Fingerprint(Today(src.Events, now.In(loc)))
	if err != nil {
		return false, err
	}
	if fp == src.Fingerprint {
		return false, nil
	}
	src.Fingerprint = fp
	return true, nil
}

// Today keeps the events dated on now's calendar day.
func Today(events []models.CalendarEvent, now time.Time) []models.CalendarEvent {
	today := now.Format(DateLayout)
	var out []models.CalendarEvent
	for _, ev := range events {
		if ev.Date == today {
			out = append(out, ev)
		}
	}
	return out
}

// Merge concatenates the events of all sources.
func Merge(sources []*models.CalendarSource) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, src := range sources {
		out = append(out, src.Events...)
	}
	return out
}

// Rooms returns the distinct rooms of events in ascending order.
func Rooms(events []models.CalendarEvent) []string {
	seen := make(map[string]struct{})
	var rooms []string
	for _, ev := range events {
		if _, ok := seen[ev.Room]; ok {
			continue
		}
		seen[ev.Room] = struct{}{}
		rooms = append(rooms, ev.Room)
	}
	sort.Strings(rooms)
	return rooms
}

// ForRoom returns room's events ordered by start time. HH:MM strings sort
// correctly as text; entries with equal start keep their relative order.
func ForRoom(events []models.CalendarEvent, room string) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, ev := range events {
		if ev.Room == room {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

package uploader

import (
	"context"

	"roomsync/models"
)

// EventSource retrieves the raw feed records of one calendar.
type EventSource interface {
	Fetch(ctx context.Context, src *models.CalendarSource) ([]models.RawEvent, error)
}

// ScheduleUploader pushes a room's ordered entries to one display.
type ScheduleUploader interface {
	UploadSchedule(ctx context.Context, mac string, events []models.CalendarEvent) error
}

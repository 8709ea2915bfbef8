package uploader

import (
	"errors"
	"fmt"
)

// ErrCycleInProgress is returned when a trigger fires while a cycle is
// still running. The trigger is skipped.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// ConfigurationError marks a room that has events today but no display
// configured. It is logged, never returned.
type ConfigurationError struct {
	Room string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no devices configured for room %q", e.Room)
}

// File: roomsync/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the endpoint handlers handed to the router.
type HandlerBundle struct {
	HealthHandler      gin.HandlerFunc
	GetStatusHandler   gin.HandlerFunc
	TriggerSyncHandler gin.HandlerFunc
}

// NewHandlerBundle wires the status handler into a bundle.
func NewHandlerBundle(h *StatusHandler) *HandlerBundle {
	return &HandlerBundle{
		HealthHandler:      h.HealthHandler,
		GetStatusHandler:   h.GetStatusHandler,
		TriggerSyncHandler: h.TriggerSyncHandler,
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"roomsync/services/session"
	"roomsync/services/uploader"
	"roomsync/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncService is the part of the orchestrator the status API needs.
type SyncService interface {
	RunCycle(ctx context.Context) (uploader.CycleResult, error)
	LastResult() (uploader.CycleResult, bool)
	Running() bool
}

// SessionStats reports the state of the display API session.
type SessionStats interface {
	Stats() session.Stats
}

// StatusHandler serves health, status and manual sync endpoints.
type StatusHandler struct {
	Sync    SyncService
	Session SessionStats
}

func NewStatusHandler(sync SyncService, sess SessionStats) *StatusHandler {
	return &StatusHandler{Sync: sync, Session: sess}
}

// HealthHandler reports liveness and the session store health.
func (h *StatusHandler) HealthHandler(c *gin.Context) {
	health := utils.GetHealthStatus()
	status := "ok"
	if health.SessionStore == "redis" && !health.Redis {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "checks": health})
}

// GetStatusHandler returns the last cycle and the session coordinator state.
func (h *StatusHandler) GetStatusHandler(c *gin.Context) {
	resp := gin.H{
		"running": h.Sync.Running(),
		"session": h.Session.Stats(),
	}
	if last, ok := h.Sync.LastResult(); ok {
		resp["lastCycle"] = last
	}
	c.JSON(http.StatusOK, resp)
}

// TriggerSyncHandler runs a polling cycle right away.
func (h *StatusHandler) TriggerSyncHandler(c *gin.Context) {
	logger := getLogger(c)

	// The cycle must not be cut short when the caller disconnects.
	res, err := h.Sync.RunCycle(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, uploader.ErrCycleInProgress) {
		utils.JSONError(c, http.StatusConflict, "Sync already running", err.Error())
		return
	}
	if err != nil {
		logger.Error("Manual sync failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Sync failed", err.Error())
		return
	}
	logger.Info("Manual sync finished", zap.String("cycle", res.ID), zap.Bool("pushed", res.Pushed))
	c.JSON(http.StatusOK, res)
}

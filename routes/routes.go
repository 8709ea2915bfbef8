package routes

import (
	"time"

	"roomsync/handlers"
	"roomsync/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers the status API.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/status", hb.GetStatusHandler)
		// Manual syncs hit the display API; keep them rare per client.
		api.POST("/sync", middleware.RateLimitMiddleware(10*time.Second, 1), hb.TriggerSyncHandler)
	}
}

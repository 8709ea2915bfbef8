package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	SessionStore string    `json:"sessionStore"`
	Redis        bool      `json:"redis"`
	CheckedAt    time.Time `json:"checkedAt"`
}

var (
	currentHealth = HealthStatus{SessionStore: "memory"}
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// StartHealthMonitor pings the session Redis periodically and updates the
// in-memory snapshot until ctx is done. A nil client means the session is
// kept in memory and there is nothing to monitor.
func StartHealthMonitor(ctx context.Context, client *redis.Client, interval time.Duration) {
	if client == nil {
		return
	}
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		healthy := client.Ping(pingCtx).Err() == nil
		if !healthy {
			GetLogger().Warn("Redis connection lost")
		}

		mu.Lock()
		currentHealth = HealthStatus{SessionStore: "redis", Redis: healthy, CheckedAt: time.Now()}
		mu.Unlock()
	}

	check()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

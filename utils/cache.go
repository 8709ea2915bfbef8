// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"roomsync/config"

	"github.com/go-redis/redis/v8"
)

// InitSessionCache connects the Redis client used for the session cookie.
// It returns nil without error when no Redis address is configured.
func InitSessionCache() (*redis.Client, error) {
	if config.AppConfig.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (Session Cache): %w", err)
	}
	return client, nil
}

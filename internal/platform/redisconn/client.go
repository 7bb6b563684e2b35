// Package redisconn constructs the shared Redis client used by the task
// broker and the cache store client.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/archivio/curator/internal/config"
	"github.com/redis/go-redis/v9"
)

// New creates a Redis client from configuration and verifies connectivity
// with a ping before returning it.
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/archivio/curator/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a Redis store.
type RedisCache struct {
	counters

	client     *redis.Client
	defaultTTL time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewRedisCache creates a cache client. defaultTTL applies to keys outside
// the partition table; zero falls back to FallbackTTL.
func NewRedisCache(client *redis.Client, defaultTTL time.Duration, m *metrics.Metrics, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client:     client,
		defaultTTL: defaultTTL,
		metrics:    m,
		logger:     logger.With("component", "redis_cache"),
	}
}

// Get fetches a value, returning ErrCacheMiss when absent. Connectivity
// errors are not swallowed: a caller must be able to distinguish a miss
// from a store outage.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		c.metrics.CountCacheOp("miss")
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}

	c.hits.Add(1)
	c.metrics.CountCacheOp("hit")
	return val, nil
}

// Set writes a whole value with the partition TTL unless overridden.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	expiry := ttlFor(key, ttl, c.defaultTTL)
	if err := c.client.Set(ctx, key, value, expiry).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Delete removes a single key. Deleting an absent key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	c.invalidations.Add(1)
	c.metrics.CountCacheOp("invalidation")
	return nil
}

// DeleteByPattern scans for keys matching the glob pattern and removes
// them in batches. SCAN is used instead of KEYS so a large invalidation
// does not stall the store.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var removed int64
	var cursor uint64

	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan %q: %w", pattern, err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache delete by pattern %q: %w", pattern, err)
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if removed > 0 {
		c.invalidations.Add(removed)
		c.metrics.CountCacheOp("invalidation")
	}

	c.logger.Debug("pattern invalidation",
		"pattern", pattern,
		"removed", removed)

	return removed, nil
}

var _ Cache = (*RedisCache)(nil)

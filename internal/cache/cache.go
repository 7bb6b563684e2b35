// Package cache provides the client for the networked key-value store
// holding derived data (search entries, embeddings, quality scores,
// recommendation profiles). Every entry is a disposable, recomputable
// value: writes are whole-value replacements, concurrent writers race, and
// last-write-wins is the accepted consistency model.
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the store client contract. DeleteByPattern accepts a glob
// pattern (Redis KEYS syntax) and is used by post-mutation reactions to
// clear every partition touched by a changed entity in one call.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes a whole value. When no TTL is given, the default for the
	// key's prefix partition applies.
	Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error

	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes every key matching the glob pattern and
	// returns the number removed. Calling it twice is harmless.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	// HitRate reports hits / (hits + misses), or zero before any reads.
	HitRate() float64

	Stats() Stats
}

// Stats carries the observability counters every implementation maintains.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
}

// counters is embedded by implementations to share the stats bookkeeping.
type counters struct {
	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

func (c *counters) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (c *counters) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

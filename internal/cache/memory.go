package cache

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"
)

// MemoryCache implements Cache in-process with Redis-style glob matching.
// It backs tests and single-process deployments.
type MemoryCache struct {
	counters

	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// SetClock replaces the cache's time source. Intended for tests.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get fetches a value, returning ErrCacheMiss when absent or expired.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok || now.After(entry.expiresAt) {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	return entry.value, nil
}

// Set writes a whole value with the partition TTL unless overridden.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	expiry := ttlFor(key, ttl, c.defaultTTL)

	// Copy so a caller mutating its slice afterwards cannot corrupt the
	// stored value; entries are whole-value replacements only.
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: stored, expiresAt: c.now().Add(expiry)}
	return nil
}

// Delete removes a single key. Deleting an absent key is not an error.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.invalidations.Add(1)
	}
	return nil
}

// DeleteByPattern removes every key matching the glob pattern.
func (c *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key := range c.entries {
		if globMatch(pattern, key) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		c.invalidations.Add(removed)
	}
	return removed, nil
}

// globMatch implements Redis KEYS-style matching: '*', '?', and character
// classes, with no separator special-casing. path.Match treats '/' as a
// separator, so keys are shielded by swapping any '/' for a byte that
// cannot appear in a pattern.
func globMatch(pattern, key string) bool {
	if strings.ContainsRune(key, '/') {
		key = strings.ReplaceAll(key, "/", "\x00")
		pattern = strings.ReplaceAll(pattern, "/", "\x00")
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}

var _ Cache = (*MemoryCache)(nil)

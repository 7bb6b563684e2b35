package cache

import (
	"strings"
	"time"
)

// Default TTL per key-prefix partition. Different derived-data kinds
// tolerate different staleness: embeddings are expensive and change
// rarely, search entries go stale with every mutation.
var partitionTTLs = []struct {
	prefix string
	ttl    time.Duration
}{
	{"search:", 10 * time.Minute},
	{"embedding:", 24 * time.Hour},
	{"quality:", time.Hour},
	{"recommend:", 30 * time.Minute},
	{"classify:", 6 * time.Hour},
}

// FallbackTTL applies to keys outside every known partition when the
// implementation was given no default.
const FallbackTTL = 5 * time.Minute

// ttlFor selects the TTL for a key: explicit override first, then the
// partition table, then the configured default.
func ttlFor(key string, override []time.Duration, fallback time.Duration) time.Duration {
	if len(override) > 0 && override[0] > 0 {
		return override[0]
	}
	for _, p := range partitionTTLs {
		if strings.HasPrefix(key, p.prefix) {
			return p.ttl
		}
	}
	if fallback > 0 {
		return fallback
	}
	return FallbackTTL
}

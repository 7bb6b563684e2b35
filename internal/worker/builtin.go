package worker

import (
	"context"
	"fmt"

	"github.com/archivio/curator/internal/cache"
	"github.com/archivio/curator/internal/task"
)

// CacheInvalidateFunc returns the compute function for cache_invalidate
// tasks: it blast-clears the cache partitions named in the task args. It
// is idempotent by construction, so the duplicate tasks produced by
// rapid-fire events within a debounce window are harmless.
//
// Args: patterns ([]string of glob patterns).
func CacheInvalidateFunc(c cache.Cache) ComputeFunc {
	return func(ctx context.Context, args map[string]any, _ *Handle) (Outcome, error) {
		raw, ok := args["patterns"]
		if !ok {
			return Outcome{}, task.Permanent(fmt.Errorf("cache_invalidate task missing patterns arg"))
		}

		patterns, err := toStrings(raw)
		if err != nil {
			return Outcome{}, task.Permanent(fmt.Errorf("cache_invalidate patterns: %w", err))
		}

		for _, pattern := range patterns {
			if _, err := c.DeleteByPattern(ctx, pattern); err != nil {
				// Store connectivity problems are worth retrying.
				return Outcome{}, task.Transient(err)
			}
		}
		return Outcome{}, nil
	}
}

// toStrings accepts both []string and the []any JSON deserialization
// produces after a broker round trip.
func toStrings(v any) ([]string, error) {
	switch vals := v.(type) {
	case []string:
		return vals, nil
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string list, got %T", v)
	}
}

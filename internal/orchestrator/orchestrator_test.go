package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/cache"
	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *broker.MemoryBroker, *cache.MemoryCache) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := broker.NewMemoryBroker(broker.MemoryOptions{})
	c := cache.NewMemoryCache(0)
	bus := events.NewBus(32, logger)
	registry := hooks.NewRegistry(hooks.Defaults(), b, logger)

	o, err := New(bus, b, c, registry, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })

	return o, b, c
}

func TestEmitSchedulesHookTasks(t *testing.T) {
	o, b, _ := newTestOrchestrator(t)
	ctx := context.Background()

	event := o.Emit(ctx, events.EventResourceCreated,
		map[string]any{"resource_id": "r-1"},
		events.WithPriority(events.PriorityHigh))
	assert.Equal(t, events.PriorityHigh, event.Priority)

	// resource.created fans out to critical, bulk, and default queues.
	for queue, want := range map[string]int64{
		hooks.QueueCritical: 1,
		hooks.QueueBulk:     1,
		hooks.QueueDefault:  1,
	} {
		depth, err := b.Depth(ctx, queue)
		require.NoError(t, err)
		assert.Equal(t, want, depth, "queue %s", queue)
	}
}

func TestEmitNeverSurfacesHookFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// A near-full broker makes most hook enqueues fail.
	b := broker.NewMemoryBroker(broker.MemoryOptions{MaxDepth: 1})
	bus := events.NewBus(32, logger)
	registry := hooks.NewRegistry(hooks.Defaults(), b, logger)

	o, err := New(bus, b, cache.NewMemoryCache(0), registry, logger)
	require.NoError(t, err)
	defer func() { _ = o.Close() }()

	assert.NotPanics(t, func() {
		for i := 0; i < 5; i++ {
			o.Emit(context.Background(), events.EventResourceUpdated,
				map[string]any{"resource_id": "r-1"})
		}
	})
}

func TestObservabilitySurfaces(t *testing.T) {
	o, _, c := newTestOrchestrator(t)
	ctx := context.Background()

	o.Emit(ctx, events.EventResourceCreated, map[string]any{"resource_id": "r-1"})
	o.Emit(ctx, events.EventResourceUpdated, map[string]any{"resource_id": "r-1"})

	history := o.EventHistory(10)
	require.Len(t, history, 2)
	assert.Equal(t, events.EventResourceUpdated, history[0].Name)

	depth, err := o.QueueDepth(ctx, hooks.QueueCritical)
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth)

	require.NoError(t, c.Set(ctx, "search:r-1", []byte("v")))
	_, err = c.Get(ctx, "search:r-1")
	require.NoError(t, err)
	_, _ = c.Get(ctx, "search:absent")

	assert.Equal(t, int64(1), o.CacheStats().Hits)
	assert.Equal(t, int64(1), o.CacheStats().Misses)
	assert.InDelta(t, 0.5, o.CacheHitRate(), 1e-9)
}

package hooks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// drainQueue pops every deliverable descriptor, including delayed ones by
// advancing the broker clock far into the future first.
func drainQueue(t *testing.T, b *broker.MemoryBroker, queue string) []*task.Descriptor {
	t.Helper()
	b.SetClock(func() time.Time { return time.Now().Add(24 * time.Hour) })
	defer b.SetClock(time.Now)

	var out []*task.Descriptor
	for {
		d, err := b.Dequeue(context.Background(), queue)
		if err != nil {
			return out
		}
		require.NoError(t, b.Ack(context.Background(), queue, d.ID))
		out = append(out, d)
	}
}

func TestRegisterAll(t *testing.T) {
	t.Run("idempotent registration", func(t *testing.T) {
		b := broker.NewMemoryBroker(broker.MemoryOptions{})
		bus := events.NewBus(16, testLogger())
		defer bus.Close()

		r := NewRegistry(Defaults(), b, testLogger())
		require.NoError(t, r.RegisterAll(bus))
		require.NoError(t, r.RegisterAll(bus))

		bus.Emit(context.Background(), events.EventResourceDeleted,
			map[string]any{"resource_id": "r-1"})

		// Two bindings for resource.deleted; double registration would
		// have produced four tasks.
		got := drainQueue(t, b, QueueCritical)
		assert.Len(t, got, 2)
	})

	t.Run("invalid binding rejected", func(t *testing.T) {
		b := broker.NewMemoryBroker(broker.MemoryOptions{})
		bus := events.NewBus(16, testLogger())
		defer bus.Close()

		r := NewRegistry([]Binding{{Event: "x"}}, b, testLogger())
		assert.Error(t, r.RegisterAll(bus))
	})
}

func TestResourceUpdatedFanOut(t *testing.T) {
	b := broker.NewMemoryBroker(broker.MemoryOptions{})
	bus := events.NewBus(16, testLogger())
	defer bus.Close()

	r := NewRegistry(Defaults(), b, testLogger())
	require.NoError(t, r.RegisterAll(bus))

	before := time.Now()
	bus.Emit(context.Background(), events.EventResourceUpdated,
		map[string]any{"resource_id": "r-7"})

	critical := drainQueue(t, b, QueueCritical)
	bulk := drainQueue(t, b, QueueBulk)
	require.Len(t, critical, 2)
	require.Len(t, bulk, 1)

	byType := map[string]*task.Descriptor{}
	for _, d := range append(critical, bulk...) {
		byType[d.Type] = d
	}

	sync := byType[task.TypeSearchIndexSync]
	require.NotNil(t, sync)
	assert.Equal(t, 9, sync.Priority)
	assert.True(t, sync.NotBefore.IsZero(), "search sync is immediate")

	invalidate := byType[task.TypeCacheInvalidate]
	require.NotNil(t, invalidate)
	assert.Equal(t, 9, invalidate.Priority)
	assert.Equal(t, []any{"*:r-7"}, invalidate.Args["patterns"])

	embed := byType[task.TypeEmbeddingRegen]
	require.NotNil(t, embed)
	assert.Equal(t, 7, embed.Priority)
	// Debounce: scheduled five seconds after enqueue.
	assert.False(t, embed.NotBefore.IsZero())
	assert.WithinDuration(t, before.Add(5*time.Second), embed.NotBefore, 2*time.Second)
}

func TestReactionSurfacesEnqueueFailure(t *testing.T) {
	b := broker.NewMemoryBroker(broker.MemoryOptions{MaxDepth: 1})
	bus := events.NewBus(16, testLogger())
	defer bus.Close()

	r := NewRegistry(Defaults(), b, testLogger())
	require.NoError(t, r.RegisterAll(bus))

	// Fill the critical queue so the second hook's enqueue fails; emit
	// must still not panic and the other handlers must still run.
	assert.NotPanics(t, func() {
		bus.Emit(context.Background(), events.EventResourceUpdated,
			map[string]any{"resource_id": "r-1"})
	})

	// One of the two critical-queue tasks made it, plus the bulk task.
	critical := drainQueue(t, b, QueueCritical)
	bulk := drainQueue(t, b, QueueBulk)
	assert.Len(t, critical, 1)
	assert.Len(t, bulk, 1)
}

func TestDefaultArgsPassPayloadThrough(t *testing.T) {
	b := broker.NewMemoryBroker(broker.MemoryOptions{})
	bus := events.NewBus(16, testLogger())
	defer bus.Close()

	r := NewRegistry(Defaults(), b, testLogger())
	require.NoError(t, r.RegisterAll(bus))

	bus.Emit(context.Background(), events.EventQualityDegraded,
		map[string]any{"resource_id": "r-3", "score": 0.2})

	got := drainQueue(t, b, QueueDefault)
	require.Len(t, got, 1)
	assert.Equal(t, task.TypeQualityScore, got[0].Type)
	assert.Equal(t, "r-3", got[0].Args["resource_id"])
}

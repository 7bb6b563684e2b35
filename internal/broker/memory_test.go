package broker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/archivio/curator/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerPriorityOrdering(t *testing.T) {
	b := NewMemoryBroker(MemoryOptions{})
	ctx := context.Background()

	t.Run("higher priority pre-empts FIFO", func(t *testing.T) {
		low := task.New(task.TypeRecommendationRefresh, "q1", nil, task.WithPriority(3))
		high := task.New(task.TypeSearchIndexSync, "q1", nil, task.WithPriority(9))

		_, err := b.Enqueue(ctx, low)
		require.NoError(t, err)
		_, err = b.Enqueue(ctx, high)
		require.NoError(t, err)

		first, err := b.Dequeue(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, high.ID, first.ID)

		second, err := b.Dequeue(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, low.ID, second.ID)
	})

	t.Run("FIFO preserved among equal priorities", func(t *testing.T) {
		var ids []string
		for i := 0; i < 5; i++ {
			d := task.New(task.TypeQualityScore, "q2", nil, task.WithPriority(5))
			_, err := b.Enqueue(ctx, d)
			require.NoError(t, err)
			ids = append(ids, d.ID)
		}

		for i := 0; i < 5; i++ {
			got, err := b.Dequeue(ctx, "q2")
			require.NoError(t, err)
			assert.Equal(t, ids[i], got.ID)
		}
	})
}

func TestMemoryBrokerBackpressure(t *testing.T) {
	b := NewMemoryBroker(MemoryOptions{MaxDepth: 10})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := b.Enqueue(ctx, task.New(task.TypeCacheWarm, "capped", nil))
		require.NoError(t, err)
	}

	depth, err := b.Depth(ctx, "capped")
	require.NoError(t, err)
	assert.Equal(t, int64(10), depth)

	_, err = b.Enqueue(ctx, task.New(task.TypeCacheWarm, "capped", nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestMemoryBrokerDelayedDelivery(t *testing.T) {
	b := NewMemoryBroker(MemoryOptions{})
	ctx := context.Background()

	now := time.Now()
	b.SetClock(func() time.Time { return now })

	d := task.New(task.TypeEmbeddingRegen, "delayed", nil, task.WithDelay(5*time.Second))
	// The descriptor's delay is relative to its own enqueue timestamp.
	d.NotBefore = now.Add(5 * time.Second)

	_, err := b.Enqueue(ctx, d)
	require.NoError(t, err)

	// Delayed tasks count toward depth but are not deliverable yet.
	depth, err := b.Depth(ctx, "delayed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	_, err = b.Dequeue(ctx, "delayed")
	assert.ErrorIs(t, err, ErrEmpty)

	now = now.Add(6 * time.Second)
	got, err := b.Dequeue(ctx, "delayed")
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
}

func TestMemoryBrokerVisibility(t *testing.T) {
	b := NewMemoryBroker(MemoryOptions{Visibility: time.Minute})
	ctx := context.Background()

	now := time.Now()
	b.SetClock(func() time.Time { return now })

	d := task.New(task.TypeSearchIndexSync, "vis", nil)
	_, err := b.Enqueue(ctx, d)
	require.NoError(t, err)

	t.Run("claimed task is invisible", func(t *testing.T) {
		got, err := b.Dequeue(ctx, "vis")
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)

		_, err = b.Dequeue(ctx, "vis")
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("unacked task is reclaimed after the window", func(t *testing.T) {
		now = now.Add(2 * time.Minute)

		got, err := b.Dequeue(ctx, "vis")
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)
	})

	t.Run("acked task never comes back", func(t *testing.T) {
		require.NoError(t, b.Ack(ctx, "vis", d.ID))
		now = now.Add(10 * time.Minute)

		_, err := b.Dequeue(ctx, "vis")
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("acking an unknown task is a no-op", func(t *testing.T) {
		assert.NoError(t, b.Ack(ctx, "vis", "no-such-task"))
	})
}

func TestMemoryBrokerRoundTrip(t *testing.T) {
	b := NewMemoryBroker(MemoryOptions{})
	ctx := context.Background()

	d := task.New(task.TypeEmbeddingRegen, "rt",
		map[string]any{"resource_id": "r-1", "attempt": "first"},
		task.WithPriority(7),
		task.WithMaxRetries(4),
		task.WithTTL(time.Hour))
	d.RetryCount = 2

	_, err := b.Enqueue(ctx, d)
	require.NoError(t, err)

	got, err := b.Dequeue(ctx, "rt")
	require.NoError(t, err)

	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.Type, got.Type)
	assert.Equal(t, d.Args, got.Args)
	assert.Equal(t, d.Priority, got.Priority)
	assert.Equal(t, d.RetryCount, got.RetryCount)
	assert.Equal(t, d.MaxRetries, got.MaxRetries)
	assert.Equal(t, d.TTLSeconds, got.TTLSeconds)
}

func TestMemoryBrokerConcurrentDequeue(t *testing.T) {
	b := NewMemoryBroker(MemoryOptions{})
	ctx := context.Background()

	const total = 100
	for i := 0; i < total; i++ {
		_, err := b.Enqueue(ctx, task.New(task.TypeQualityScore, "conc",
			map[string]any{"n": fmt.Sprintf("%d", i)}))
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				d, err := b.Dequeue(ctx, "conc")
				if err != nil {
					return
				}
				mu.Lock()
				assert.False(t, seen[d.ID], "task %s dequeued twice", d.ID)
				seen[d.ID] = true
				mu.Unlock()
				require.NoError(t, b.Ack(ctx, "conc", d.ID))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
}

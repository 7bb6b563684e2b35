package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDescriptor(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		d := New(TypeSearchIndexSync, "critical", map[string]any{"resource_id": "r-1"})

		assert.NotEmpty(t, d.ID)
		assert.Equal(t, TypeSearchIndexSync, d.Type)
		assert.Equal(t, "critical", d.Queue)
		assert.Equal(t, 0, d.Priority)
		assert.Equal(t, 0, d.RetryCount)
		assert.Equal(t, 3, d.MaxRetries)
		assert.True(t, d.NotBefore.IsZero())
		assert.False(t, d.EnqueuedAt.IsZero())
	})

	t.Run("priority is clamped", func(t *testing.T) {
		high := New(TypeSearchIndexSync, "q", nil, WithPriority(99))
		assert.Equal(t, MaxPriority, high.Priority)

		low := New(TypeSearchIndexSync, "q", nil, WithPriority(-5))
		assert.Equal(t, MinPriority, low.Priority)
	})

	t.Run("delay sets NotBefore relative to enqueue time", func(t *testing.T) {
		d := New(TypeEmbeddingRegen, "q", nil, WithDelay(5*time.Second))
		assert.Equal(t, d.EnqueuedAt.Add(5*time.Second), d.NotBefore)
		assert.False(t, d.Due(d.EnqueuedAt))
		assert.True(t, d.Due(d.EnqueuedAt.Add(6*time.Second)))
	})
}

func TestDescriptorStale(t *testing.T) {
	d := New(TypeSearchIndexSync, "q", nil, WithTTL(time.Second))

	assert.False(t, d.Stale(d.EnqueuedAt))
	assert.False(t, d.Stale(d.EnqueuedAt.Add(time.Second)))
	assert.True(t, d.Stale(d.EnqueuedAt.Add(time.Second+time.Millisecond)))

	noTTL := New(TypeSearchIndexSync, "q", nil)
	assert.False(t, noTTL.Stale(noTTL.EnqueuedAt.Add(24*time.Hour)))
}

func TestDescriptorRetry(t *testing.T) {
	t.Run("retry increments count and keeps EnqueuedAt", func(t *testing.T) {
		d := New(TypeQualityScore, "q", nil, WithMaxRetries(2))

		due := time.Now().Add(4 * time.Second)
		next, err := d.Retry(due)
		require.NoError(t, err)

		assert.Equal(t, 1, next.RetryCount)
		assert.Equal(t, d.EnqueuedAt, next.EnqueuedAt)
		assert.Equal(t, due, next.NotBefore)
		// The original descriptor is untouched.
		assert.Equal(t, 0, d.RetryCount)
	})

	t.Run("retry never exceeds the budget", func(t *testing.T) {
		d := New(TypeQualityScore, "q", nil, WithMaxRetries(1))

		next, err := d.Retry(time.Now())
		require.NoError(t, err)
		assert.LessOrEqual(t, next.RetryCount, next.MaxRetries)

		_, err = next.Retry(time.Now())
		require.Error(t, err)
	})
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := New(TypeEmbeddingRegen, "bulk",
		map[string]any{"resource_id": "r-9", "model": "small"},
		WithPriority(7),
		WithDelay(5*time.Second),
		WithMaxRetries(4),
		WithTTL(time.Hour))
	d.RetryCount = 2

	data, err := d.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.Type, got.Type)
	assert.Equal(t, d.Queue, got.Queue)
	assert.Equal(t, d.Priority, got.Priority)
	assert.Equal(t, d.RetryCount, got.RetryCount)
	assert.Equal(t, d.MaxRetries, got.MaxRetries)
	assert.Equal(t, d.TTLSeconds, got.TTLSeconds)
	assert.Equal(t, map[string]any{"resource_id": "r-9", "model": "small"}, got.Args)
	assert.True(t, d.EnqueuedAt.Equal(got.EnqueuedAt))
	assert.True(t, d.NotBefore.Equal(got.NotBefore))
}

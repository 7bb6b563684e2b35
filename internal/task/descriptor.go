package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Known task types produced by hooks and the scheduler. The compute
// functions bound to them live with the business layer; the core treats
// them as opaque.
const (
	TypeSearchIndexSync       = "search_index_sync"
	TypeEmbeddingRegen        = "embedding_regen"
	TypeQualityScore          = "quality_score"
	TypeRecommendationRefresh = "recommendation_refresh"
	TypeCacheInvalidate       = "cache_invalidate"
	TypeCacheWarm             = "cache_warm"
	TypeQualitySweep          = "quality_sweep"
)

// Priority bounds for descriptors. Values outside the range are clamped
// at construction.
const (
	MinPriority = 0
	MaxPriority = 10
)

// Descriptor is the serialized unit of work pushed through the broker.
// The worker pool is the only component that mutates one, and only to
// increment RetryCount on a retry attempt.
type Descriptor struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Args  map[string]any `json:"args"`
	Queue string         `json:"queue"`

	// Priority orders tasks within a queue; higher dequeues first.
	Priority int `json:"priority"`

	// EnqueuedAt is when the descriptor was first enqueued. Retries keep
	// the original value so TTL expiry counts from first enqueue.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// NotBefore delays delivery until the given time. Zero means
	// immediately deliverable.
	NotBefore time.Time `json:"not_before,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// TTLSeconds bounds how stale the task may be before first execution;
	// zero disables the check.
	TTLSeconds int `json:"ttl_seconds"`
}

// Option configures a new Descriptor.
type Option func(*Descriptor)

// WithPriority sets the queue priority (clamped to 0-10).
func WithPriority(p int) Option {
	return func(d *Descriptor) { d.Priority = p }
}

// WithDelay schedules the task for delivery after the given duration.
func WithDelay(delay time.Duration) Option {
	return func(d *Descriptor) {
		if delay > 0 {
			d.NotBefore = d.EnqueuedAt.Add(delay)
		}
	}
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) Option {
	return func(d *Descriptor) {
		if n >= 0 {
			d.MaxRetries = n
		}
	}
}

// WithTTL bounds task staleness before first execution.
func WithTTL(ttl time.Duration) Option {
	return func(d *Descriptor) {
		if ttl > 0 {
			d.TTLSeconds = int(ttl / time.Second)
		}
	}
}

// New constructs a Descriptor with a fresh ID and the default retry budget.
func New(taskType, queue string, args map[string]any, opts ...Option) *Descriptor {
	d := &Descriptor{
		ID:         uuid.NewString(),
		Type:       taskType,
		Args:       args,
		Queue:      queue,
		Priority:   MinPriority,
		EnqueuedAt: time.Now().UTC(),
		MaxRetries: 3,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.Priority < MinPriority {
		d.Priority = MinPriority
	}
	if d.Priority > MaxPriority {
		d.Priority = MaxPriority
	}

	return d
}

// Stale reports whether the descriptor's TTL elapsed before execution.
func (d *Descriptor) Stale(now time.Time) bool {
	if d.TTLSeconds <= 0 {
		return false
	}
	return now.Sub(d.EnqueuedAt) > time.Duration(d.TTLSeconds)*time.Second
}

// Due reports whether the descriptor is deliverable at the given time.
func (d *Descriptor) Due(now time.Time) bool {
	return d.NotBefore.IsZero() || !now.Before(d.NotBefore)
}

// Retry returns a copy with the retry counter incremented and delivery
// deferred until the given time. The copy keeps the original EnqueuedAt
// and never exceeds the retry budget.
func (d *Descriptor) Retry(notBefore time.Time) (*Descriptor, error) {
	if d.RetryCount >= d.MaxRetries {
		return nil, fmt.Errorf("retry budget exhausted for task %s (%d/%d)",
			d.ID, d.RetryCount, d.MaxRetries)
	}

	next := *d
	next.RetryCount++
	next.NotBefore = notBefore
	return &next, nil
}

// Marshal serializes the descriptor for the broker.
func (d *Descriptor) Marshal() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task %s: %w", d.ID, err)
	}
	return data, nil
}

// Unmarshal deserializes a descriptor popped from the broker.
func Unmarshal(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task descriptor: %w", err)
	}
	return &d, nil
}

package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Priority indicates how urgent the reactions to an event are. Hooks map
// event priority to task queue priority through a static table.
type Priority int

// Event priority levels, most urgent first.
const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// String returns the lowercase name of the priority level.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// Event is an immutable record that a state change happened. It is
// constructed by Emit and never mutated afterwards; the bus retains only
// a bounded in-memory history of recent events.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Name identifies the kind of event (see names.go for known names)
	Name string `json:"name"`

	// Payload contains event-specific data; payload key schemas are
	// documented alongside the event name constants
	Payload map[string]any `json:"payload"`

	// Priority indicates reaction urgency
	Priority Priority `json:"priority"`

	// CorrelationID links the event to the request or task that produced it
	CorrelationID string `json:"correlation_id"`

	// Timestamp is when the event was constructed
	Timestamp time.Time `json:"timestamp"`
}

// Handler processes an event. Returned errors are logged and contained by
// the bus; they never propagate to the emitter.
type Handler func(ctx context.Context, event Event) error

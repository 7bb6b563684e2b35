// Package hooks maps domain events to the background tasks they schedule.
// A reaction never performs the expensive work itself: it only computes a
// task descriptor and enqueues it, which is what keeps emit non-blocking
// on the request path. Debounce is a scheduling delay on the enqueued
// task, not stateful coalescing; duplicate tasks for the same entity
// within the window are handled by idempotent task bodies.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/task"
)

// Binding wires one event name to one task-producing reaction. Multiple
// bindings may target the same event (fan-out); each runs independently.
type Binding struct {
	Event    string
	TaskType string
	Queue    string

	// Priority is the queue priority of the produced task (0-10); critical
	// path reactions outrank low-urgency ones via the static table.
	Priority int

	// Delay defers delivery to debounce rapid repeated triggers.
	Delay time.Duration

	MaxRetries int
	TTL        time.Duration

	// Args derives the task args from the event. Nil passes the event
	// payload through unchanged.
	Args func(events.Event) map[string]any
}

// Registry holds the static binding table and wires it into a bus once at
// startup. Read-only after registration.
type Registry struct {
	bindings   []Binding
	broker     broker.Broker
	logger     *slog.Logger
	registered bool
}

// NewRegistry creates a registry over the given binding table.
func NewRegistry(bindings []Binding, b broker.Broker, logger *slog.Logger) *Registry {
	return &Registry{
		bindings: bindings,
		broker:   b,
		logger:   logger.With("component", "hook_registry"),
	}
}

// Bindings returns the table for introspection.
func (r *Registry) Bindings() []Binding {
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// RegisterAll wires every binding into the bus. Idempotent: a second call
// is a no-op so process setup code can be re-entered safely.
func (r *Registry) RegisterAll(bus *events.Bus) error {
	if r.registered {
		return nil
	}

	for _, binding := range r.bindings {
		if binding.Event == "" || binding.TaskType == "" || binding.Queue == "" {
			return fmt.Errorf("invalid hook binding %+v: event, task type, and queue are required", binding)
		}
		bus.On(binding.Event, r.reaction(binding))
	}

	r.registered = true
	r.logger.Info("registered hooks", "binding_count", len(r.bindings))
	return nil
}

// reaction builds the bus handler for one binding: derive args, construct
// the descriptor, enqueue. An enqueue failure means real derived-state
// work was dropped, so it is surfaced (the bus logs and contains it).
func (r *Registry) reaction(binding Binding) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		args := event.Payload
		if binding.Args != nil {
			args = binding.Args(event)
		}

		d := task.New(binding.TaskType, binding.Queue, args,
			task.WithPriority(binding.Priority),
			task.WithDelay(binding.Delay),
			task.WithMaxRetries(binding.MaxRetries),
			task.WithTTL(binding.TTL))

		if _, err := r.broker.Enqueue(ctx, d); err != nil {
			return fmt.Errorf("hook %s -> %s failed to enqueue: %w", event.Name, binding.TaskType, err)
		}

		r.logger.Debug("hook scheduled task",
			"event_name", event.Name,
			"event_id", event.ID,
			"task_id", d.ID,
			"task_type", binding.TaskType,
			"queue", binding.Queue,
			"delay", binding.Delay)
		return nil
	}
}

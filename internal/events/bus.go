package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// asyncQueueSize bounds the dispatch channel for async handlers. When the
// channel is full the invocation is moved to its own goroutine so Emit
// still never blocks.
const asyncQueueSize = 256

type subscription struct {
	id      string
	name    string
	handler Handler
	async   bool
}

type asyncInvocation struct {
	sub   *subscription
	event Event
}

// Bus is the in-process publish/subscribe dispatcher. Handlers are invoked
// in registration order; each invocation is isolated so that a failing or
// panicking handler never affects the emitter or sibling handlers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]*subscription
	history *historyRing
	logger  *slog.Logger

	asyncCh chan asyncInvocation
	wg      sync.WaitGroup
	done    chan struct{}
	closed  bool

	// counter is an event metrics sink; nil-safe (see metrics package).
	counter interface{ CountEvent(name string) }
}

// SubscribeOption configures a handler registration.
type SubscribeOption func(*subscription)

// Async schedules the handler off the emitting goroutine so Emit never
// blocks on it. Use for handlers whose work is not trivially cheap.
func Async() SubscribeOption {
	return func(s *subscription) { s.async = true }
}

// EmitOption configures a single Emit call.
type EmitOption func(*Event)

// WithPriority sets the event priority. Default is PriorityNormal.
func WithPriority(p Priority) EmitOption {
	return func(e *Event) { e.Priority = p }
}

// WithCorrelationID ties the event to an upstream request or task.
func WithCorrelationID(id string) EmitOption {
	return func(e *Event) { e.CorrelationID = id }
}

// NewBus creates a bus retaining the most recent historySize events.
func NewBus(historySize int, logger *slog.Logger) *Bus {
	b := &Bus{
		subs:    make(map[string][]*subscription),
		history: newHistoryRing(historySize),
		logger:  logger.With("component", "event_bus"),
		asyncCh: make(chan asyncInvocation, asyncQueueSize),
		done:    make(chan struct{}),
	}

	b.wg.Add(1)
	go b.asyncLoop()

	return b
}

// SetEventCounter attaches a metrics sink counting emitted events.
func (b *Bus) SetEventCounter(c interface{ CountEvent(name string) }) {
	b.counter = c
}

// On registers a handler for the named event and returns a subscription ID
// usable with Off.
func (b *Bus) On(name string, handler Handler, opts ...SubscribeOption) string {
	sub := &subscription{
		id:      uuid.NewString(),
		name:    name,
		handler: handler,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], sub)

	b.logger.Debug("registered event handler",
		"event_name", name,
		"subscription_id", sub.id,
		"async", sub.async,
		"handler_count", len(b.subs[name]))

	return sub.id
}

// Off removes a previously registered handler by subscription ID.
func (b *Bus) Off(name, subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, sub := range subs {
		if sub.id == subscriptionID {
			b.subs[name] = append(subs[:i], subs[i+1:]...)
			b.logger.Debug("removed event handler",
				"event_name", name,
				"subscription_id", subscriptionID)
			return
		}
	}
}

// Emit constructs an Event, appends it to history, and invokes every
// registered handler for the name in registration order. Handler errors
// and panics are contained; Emit never returns an error and never blocks
// on async handlers. The constructed event is returned for callers that
// want the assigned ID or timestamp.
func (b *Bus) Emit(ctx context.Context, name string, payload map[string]any, opts ...EmitOption) Event {
	event := Event{
		ID:        uuid.New(),
		Name:      name,
		Payload:   payload,
		Priority:  PriorityNormal,
		Timestamp: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}

	b.history.append(event)
	if b.counter != nil {
		b.counter.CountEvent(name)
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.RUnlock()

	b.logger.Debug("emitting event",
		"event_id", event.ID,
		"event_name", name,
		"priority", event.Priority.String(),
		"handler_count", len(subs))

	for _, sub := range subs {
		if sub.async {
			b.scheduleAsync(sub, event)
			continue
		}
		b.invoke(ctx, sub, event)
	}

	return event
}

// History returns the most recent limit events, newest first. A limit of
// zero or less returns everything retained.
func (b *Bus) History(limit int) []Event {
	return b.history.recent(limit)
}

// Close stops the async dispatcher and waits for in-flight async handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}

func (b *Bus) scheduleAsync(sub *subscription, event Event) {
	// The read lock holds off Close until the invocation is either queued
	// or counted in the wait group; after Close, invocations are dropped
	// instead of racing the dispatcher shutdown.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("dropping async handler invocation, bus is closed",
			"event_id", event.ID,
			"event_name", event.Name,
			"subscription_id", sub.id)
		return
	}

	inv := asyncInvocation{sub: sub, event: event}
	select {
	case b.asyncCh <- inv:
	default:
		// Dispatch channel is saturated; spill onto a fresh goroutine
		// rather than block the emitter.
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.invoke(context.Background(), sub, event)
		}()
	}
}

func (b *Bus) asyncLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			// Drain whatever was already scheduled.
			for {
				select {
				case inv := <-b.asyncCh:
					b.invoke(context.Background(), inv.sub, inv.event)
				default:
					return
				}
			}
		case inv := <-b.asyncCh:
			b.invoke(context.Background(), inv.sub, inv.event)
		}
	}
}

// invoke runs one handler with full isolation: an error is logged, a panic
// is recovered and logged, and neither reaches the caller.
func (b *Bus) invoke(ctx context.Context, sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_id", event.ID,
				"event_name", event.Name,
				"subscription_id", sub.id,
				"panic", r)
		}
	}()

	if err := sub.handler(ctx, event); err != nil {
		b.logger.Error("event handler failed",
			"error", err,
			"event_id", event.ID,
			"event_name", event.Name,
			"subscription_id", sub.id)
	}
}

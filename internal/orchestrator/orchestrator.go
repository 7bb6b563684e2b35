// Package orchestrator is the composition root tying the event bus, hook
// registry, broker, and cache together. It is constructed once at process
// start and passed by reference to every component that needs to emit or
// observe; there is no ambient global state.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/cache"
	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/hooks"
)

// Orchestrator exposes the narrow surface the business layer calls (Emit)
// and the read-only query surfaces monitoring consumers poll.
type Orchestrator struct {
	bus    *events.Bus
	broker broker.Broker
	cache  cache.Cache
	hooks  *hooks.Registry
	logger *slog.Logger
}

// New wires the hook table into the bus and returns the assembled
// orchestrator.
func New(
	bus *events.Bus,
	b broker.Broker,
	c cache.Cache,
	registry *hooks.Registry,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if err := registry.RegisterAll(bus); err != nil {
		return nil, fmt.Errorf("failed to register hooks: %w", err)
	}

	return &Orchestrator{
		bus:    bus,
		broker: b,
		cache:  c,
		hooks:  registry,
		logger: logger.With("component", "orchestrator"),
	}, nil
}

// Emit is fire-and-forget for the business layer: handler failures are
// contained at the bus and never surface here.
func (o *Orchestrator) Emit(ctx context.Context, name string, payload map[string]any, opts ...events.EmitOption) events.Event {
	return o.bus.Emit(ctx, name, payload, opts...)
}

// Bus exposes the underlying bus for components that register their own
// listeners (workers cascading follow-up events).
func (o *Orchestrator) Bus() *events.Bus { return o.bus }

// EventHistory returns the most recent limit events, newest first.
func (o *Orchestrator) EventHistory(limit int) []events.Event {
	return o.bus.History(limit)
}

// QueueDepth reports the queued task count for a queue.
func (o *Orchestrator) QueueDepth(ctx context.Context, queue string) (int64, error) {
	return o.broker.Depth(ctx, queue)
}

// CacheStats returns the cache observability counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// CacheHitRate reports hits over total reads.
func (o *Orchestrator) CacheHitRate() float64 {
	return o.cache.HitRate()
}

// Close tears down the bus dispatcher and the broker connection.
func (o *Orchestrator) Close() error {
	o.bus.Close()
	if err := o.broker.Close(); err != nil {
		return fmt.Errorf("failed to close broker: %w", err)
	}
	return nil
}

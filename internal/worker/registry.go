package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/archivio/curator/internal/events"
)

// Outcome is what a compute function reports on success. FollowUp events
// cascade further reactions; Invalidate patterns clear the cache
// partitions the task made stale.
type Outcome struct {
	FollowUp   []EmitSpec
	Invalidate []string
}

// EmitSpec describes a follow-up event to emit after a task completes.
type EmitSpec struct {
	Name     string
	Payload  map[string]any
	Priority events.Priority
}

// ComputeFunc is the opaque unit of business work bound to a task type.
// Implementations classify their own failures with task.Transient and
// task.Permanent, and must be idempotent: at-least-once delivery means a
// function can run more than once for the same descriptor.
type ComputeFunc func(ctx context.Context, args map[string]any, res *Handle) (Outcome, error)

// Registry binds task types to compute functions. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]ComputeFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]ComputeFunc)}
}

// Bind associates a task type with its compute function. Binding the same
// type twice is a wiring bug and fails loudly.
func (r *Registry) Bind(taskType string, fn ComputeFunc) error {
	if fn == nil {
		return fmt.Errorf("nil compute function for task type %q", taskType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[taskType]; exists {
		return fmt.Errorf("task type %q already bound", taskType)
	}
	r.funcs[taskType] = fn
	return nil
}

// Get returns the compute function for a task type.
func (r *Registry) Get(taskType string) (ComputeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[taskType]
	return fn, ok
}

// Types returns the bound task types, sorted for stable logging.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.funcs))
	for t := range r.funcs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

package broker

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/archivio/curator/internal/task"
)

// MemoryBroker implements Broker in-process with the same ordering and
// visibility semantics as the Redis broker. It backs tests and
// single-process deployments that have no Redis available.
type MemoryBroker struct {
	mu         sync.Mutex
	queues     map[string]*memoryQueue
	maxDepth   int64
	visibility time.Duration
	seq        int64

	// now is swappable so tests can control time.
	now func() time.Time
}

type memoryQueue struct {
	ready      readyHeap
	delayed    delayedHeap
	processing map[string]*procEntry
}

type procEntry struct {
	desc     *task.Descriptor
	deadline time.Time
}

type readyItem struct {
	desc *task.Descriptor
	seq  int64
}

// readyHeap orders by priority (higher first) then enqueue sequence.
type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].desc.Priority != h[j].desc.Priority {
		return h[i].desc.Priority > h[j].desc.Priority
	}
	return h[i].seq < h[j].seq
}
func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x any)   { *h = append(*h, x.(*readyItem)) }
func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// delayedHeap is a min-heap of due times feeding the ready heap, the
// time-ordered wait structure behind delayed delivery.
type delayedHeap []*task.Descriptor

func (h delayedHeap) Len() int           { return len(h) }
func (h delayedHeap) Less(i, j int) bool { return h[i].NotBefore.Before(h[j].NotBefore) }
func (h delayedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *delayedHeap) Push(x any)        { *h = append(*h, x.(*task.Descriptor)) }
func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// MemoryOptions configures the in-process broker.
type MemoryOptions struct {
	MaxDepth   int64
	Visibility time.Duration
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker(opts MemoryOptions) *MemoryBroker {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Visibility <= 0 {
		opts.Visibility = DefaultVisibility
	}

	return &MemoryBroker{
		queues:     make(map[string]*memoryQueue),
		maxDepth:   opts.MaxDepth,
		visibility: opts.Visibility,
		now:        time.Now,
	}
}

// SetClock replaces the broker's time source. Intended for tests.
func (b *MemoryBroker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *MemoryBroker) queue(name string) *memoryQueue {
	q, ok := b.queues[name]
	if !ok {
		q = &memoryQueue{processing: make(map[string]*procEntry)}
		b.queues[name] = q
	}
	return q
}

// Enqueue pushes the descriptor, honoring its NotBefore delay and the
// depth cap. The descriptor round-trips through its serialized form so
// in-process callers see exactly what a networked consumer would.
func (b *MemoryBroker) Enqueue(ctx context.Context, d *task.Descriptor) (string, error) {
	data, err := d.Marshal()
	if err != nil {
		return "", err
	}
	stored, err := task.Unmarshal(data)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queue(d.Queue)
	if int64(q.ready.Len()+q.delayed.Len()) >= b.maxDepth {
		return "", fmt.Errorf("queue %q at capacity %d: %w", d.Queue, b.maxDepth, ErrQueueFull)
	}

	if !stored.Due(b.now()) {
		heap.Push(&q.delayed, stored)
	} else {
		b.seq++
		heap.Push(&q.ready, &readyItem{desc: stored, seq: b.seq})
	}

	return d.ID, nil
}

// Dequeue claims the highest-priority due task from the queue.
func (b *MemoryBroker) Dequeue(ctx context.Context, queue string) (*task.Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queue(queue)
	now := b.now()

	// Promote due delayed tasks.
	for q.delayed.Len() > 0 && q.delayed[0].Due(now) {
		d := heap.Pop(&q.delayed).(*task.Descriptor)
		b.seq++
		heap.Push(&q.ready, &readyItem{desc: d, seq: b.seq})
	}

	// Reclaim tasks whose visibility window expired.
	for id, entry := range q.processing {
		if now.After(entry.deadline) {
			b.seq++
			heap.Push(&q.ready, &readyItem{desc: entry.desc, seq: b.seq})
			delete(q.processing, id)
		}
	}

	if q.ready.Len() == 0 {
		return nil, ErrEmpty
	}

	item := heap.Pop(&q.ready).(*readyItem)
	q.processing[item.desc.ID] = &procEntry{
		desc:     item.desc,
		deadline: now.Add(b.visibility),
	}

	copied := *item.desc
	return &copied, nil
}

// Ack removes a claimed task. Unknown IDs are ignored.
func (b *MemoryBroker) Ack(ctx context.Context, queue, taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.queue(queue).processing, taskID)
	return nil
}

// Depth reports ready plus delayed tasks for the queue.
func (b *MemoryBroker) Depth(ctx context.Context, queue string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queue(queue)
	return int64(q.ready.Len() + q.delayed.Len()), nil
}

// Close is a no-op for the in-process broker.
func (b *MemoryBroker) Close() error { return nil }

var _ Broker = (*MemoryBroker)(nil)

// Package broker provides the task queue client. Queues are priority
// ordered: within a queue, higher-priority descriptors dequeue before
// lower-priority ones enqueued earlier, and FIFO order is preserved among
// equal priorities. Delivery is at-least-once: a dequeued task stays
// invisible for a visibility window and is reclaimed for other workers if
// it is not acknowledged in time, so compute functions must be idempotent.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/archivio/curator/internal/task"
)

// Sentinel errors returned by broker operations.
var (
	// ErrQueueFull signals the producer-side backpressure cap was hit.
	ErrQueueFull = errors.New("queue is full")

	// ErrEmpty signals no deliverable task is available right now.
	ErrEmpty = errors.New("queue is empty")
)

// DefaultMaxDepth caps queue growth when no explicit cap is configured.
const DefaultMaxDepth int64 = 10000

// DefaultVisibility is the late-acknowledgment window applied when no
// explicit visibility timeout is configured.
const DefaultVisibility = 5 * time.Minute

// Broker is the client contract shared by hooks, the scheduler, and the
// worker pool. Implementations must make Dequeue atomic across concurrent
// workers.
type Broker interface {
	// Enqueue pushes a serialized descriptor onto its queue and returns
	// the task ID. Returns ErrQueueFull beyond the depth cap.
	Enqueue(ctx context.Context, d *task.Descriptor) (string, error)

	// Dequeue claims the highest-priority due task from the queue, making
	// it invisible to other workers for the visibility window. Returns
	// ErrEmpty when nothing is deliverable.
	Dequeue(ctx context.Context, queue string) (*task.Descriptor, error)

	// Ack removes a claimed task permanently. Acking an unknown task is a
	// no-op: the task may already have been reclaimed and completed by
	// another worker.
	Ack(ctx context.Context, queue, taskID string) error

	// Depth reports the number of queued tasks (ready plus delayed).
	Depth(ctx context.Context, queue string) (int64, error)

	// Close releases broker resources.
	Close() error
}

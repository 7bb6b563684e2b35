package worker

import (
	"sync"
	"time"

	"github.com/archivio/curator/internal/task"
)

// DeadLetter is the terminal record of a task that exhausted its retry
// budget or failed permanently.
type DeadLetter struct {
	Descriptor task.Descriptor `json:"descriptor"`
	Error      string          `json:"error"`
	FailedAt   time.Time       `json:"failed_at"`
}

// DeadLetters is a bounded, concurrency-safe ring of terminal failures,
// kept for diagnostics.
type DeadLetters struct {
	mu    sync.Mutex
	buf   []DeadLetter
	next  int
	count int
}

// NewDeadLetters creates a ring retaining the most recent size records.
func NewDeadLetters(size int) *DeadLetters {
	if size <= 0 {
		size = 1
	}
	return &DeadLetters{buf: make([]DeadLetter, size)}
}

// Add records a terminal failure, evicting the oldest if full.
func (d *DeadLetters) Add(desc task.Descriptor, errMsg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buf[d.next] = DeadLetter{
		Descriptor: desc,
		Error:      errMsg,
		FailedAt:   time.Now().UTC(),
	}
	d.next = (d.next + 1) % len(d.buf)
	if d.count < len(d.buf) {
		d.count++
	}
}

// Recent returns up to limit records, newest first.
func (d *DeadLetters) Recent(limit int) []DeadLetter {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]DeadLetter, 0, n)
	for i := 1; i <= n; i++ {
		idx := (d.next - i + len(d.buf)) % len(d.buf)
		out = append(out, d.buf[idx])
	}
	return out
}

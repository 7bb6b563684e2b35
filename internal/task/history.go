package task

import (
	"sync"
	"time"
)

// Status values a task moves through. The job history records a
// processing entry per attempt plus one terminal transition, so the
// retry trail of a task stays visible.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// HistoryRecord captures one task transition for diagnostics. Records
// are best-effort and never consulted for correctness.
type HistoryRecord struct {
	TaskID     string    `json:"task_id"`
	Type       string    `json:"type"`
	Status     Status    `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retry_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// History is a bounded, concurrency-safe ring of the most recent task
// transitions.
type History struct {
	mu    sync.Mutex
	buf   []HistoryRecord
	next  int
	count int
}

// NewHistory creates a history retaining the most recent size records.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 1
	}
	return &History{buf: make([]HistoryRecord, size)}
}

// Append records a transition, evicting the oldest if full.
func (h *History) Append(rec HistoryRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = rec
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. A limit of zero or
// less returns everything retained.
func (h *History) Recent(limit int) []HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]HistoryRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}

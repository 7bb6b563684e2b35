package events

import "sync"

// historyRing is a fixed-capacity ring of recent events, oldest evicted
// first. It exists for diagnostics only and is never used for correctness.
type historyRing struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	count int
}

func newHistoryRing(capacity int) *historyRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &historyRing{buf: make([]Event, capacity)}
}

func (r *historyRing) append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// recent returns up to limit events, newest first.
func (r *historyRing) recent(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

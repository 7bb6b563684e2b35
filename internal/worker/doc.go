// Package worker runs the task execution side of the pipeline. A Pool of
// stateless workers pulls descriptors from the broker, skips stale ones,
// executes the bound compute function inside a scoped resource
// acquisition, and classifies each outcome: success acks and cascades,
// transient failures re-enqueue with exponential backoff until the retry
// budget is spent, permanent failures record immediately. The pool never
// crashes on a task body error or panic.
package worker

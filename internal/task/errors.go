package task

import (
	"context"
	"errors"
	"net"
)

// Kind classifies a task failure for the worker's retry decision.
type Kind int

const (
	// KindPermanent failures (validation, not-found, business-rule
	// violations) are never retried.
	KindPermanent Kind = iota

	// KindTransient failures (network, timeout, connection-class) are
	// retried with exponential backoff until the budget is exhausted.
	KindTransient
)

// ErrStale marks a task whose TTL elapsed before execution. Stale tasks
// are skipped, never executed and never retried.
var ErrStale = errors.New("task TTL exceeded before execution")

// TransientError wraps a retryable failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Transient marks err as retryable. Compute functions classify their own
// failures at the source instead of relying on message inspection.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Classify determines the failure kind by explicit error kind. Explicit
// wrappers win; errors that escape compute functions unwrapped are
// inspected for network/timeout characteristics; everything else is
// permanent so that unknown bugs do not turn into retry storms.
func Classify(err error) Kind {
	var transient *TransientError
	if errors.As(err, &transient) {
		return KindTransient
	}

	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return KindPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	return KindPermanent
}

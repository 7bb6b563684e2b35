package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "connection refused" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Run("explicit wrappers win", func(t *testing.T) {
		assert.Equal(t, KindTransient, Classify(Transient(errors.New("db unreachable"))))
		assert.Equal(t, KindPermanent, Classify(Permanent(errors.New("resource not found"))))
	})

	t.Run("wrapped deeper in a chain", func(t *testing.T) {
		err := fmt.Errorf("executing compute: %w", Transient(errors.New("timeout")))
		assert.Equal(t, KindTransient, Classify(err))
	})

	t.Run("net errors are transient", func(t *testing.T) {
		assert.Equal(t, KindTransient, Classify(&fakeNetError{timeout: true}))
		assert.Equal(t, KindTransient, Classify(fmt.Errorf("dial: %w", &fakeNetError{})))
	})

	t.Run("deadline exceeded is transient", func(t *testing.T) {
		assert.Equal(t, KindTransient, Classify(context.DeadlineExceeded))
	})

	t.Run("unclassified errors are permanent", func(t *testing.T) {
		assert.Equal(t, KindPermanent, Classify(errors.New("invalid payload")))
	})
}

func TestWrappersPreserveCause(t *testing.T) {
	cause := errors.New("root cause")

	assert.ErrorIs(t, Transient(cause), cause)
	assert.ErrorIs(t, Permanent(cause), cause)
	assert.Nil(t, Transient(nil))
	assert.Nil(t, Permanent(nil))
}

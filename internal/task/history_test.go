package task

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	t.Run("recent is newest first", func(t *testing.T) {
		h := NewHistory(10)
		for i := 0; i < 4; i++ {
			h.Append(HistoryRecord{TaskID: fmt.Sprintf("t-%d", i), Status: StatusCompleted})
		}

		recent := h.Recent(2)
		require.Len(t, recent, 2)
		assert.Equal(t, "t-3", recent[0].TaskID)
		assert.Equal(t, "t-2", recent[1].TaskID)
	})

	t.Run("oldest evicted at capacity", func(t *testing.T) {
		h := NewHistory(3)
		for i := 0; i < 5; i++ {
			h.Append(HistoryRecord{TaskID: fmt.Sprintf("t-%d", i), Status: StatusFailed})
		}

		recent := h.Recent(0)
		require.Len(t, recent, 3)
		assert.Equal(t, "t-4", recent[0].TaskID)
		assert.Equal(t, "t-2", recent[2].TaskID)
	})

	t.Run("append fills timestamp", func(t *testing.T) {
		h := NewHistory(2)
		h.Append(HistoryRecord{TaskID: "t-0", Status: StatusSkipped})
		assert.False(t, h.Recent(1)[0].Timestamp.IsZero())
	})

	t.Run("concurrent appends are safe", func(t *testing.T) {
		h := NewHistory(64)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					h.Append(HistoryRecord{TaskID: "t", Status: StatusCompleted})
				}
			}()
		}
		wg.Wait()
		assert.Len(t, h.Recent(0), 64)
	})
}

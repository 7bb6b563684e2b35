package scheduler

import (
	"time"

	"github.com/archivio/curator/internal/hooks"
	"github.com/archivio/curator/internal/task"
)

// Defaults is the static beat table for scheduled maintenance.
func Defaults() []Entry {
	return []Entry{
		// Nightly sweep rescoring resources whose quality may have
		// degraded since ingest.
		{
			TaskType:   task.TypeQualitySweep,
			Queue:      hooks.QueueBulk,
			Spec:       "0 3 * * *",
			Priority:   4,
			MaxRetries: 2,
			TTL:        6 * time.Hour,
		},
		// Hourly recommendation rebuild for active collections.
		{
			TaskType:   task.TypeRecommendationRefresh,
			Queue:      hooks.QueueBulk,
			Spec:       "0 * * * *",
			Priority:   3,
			MaxRetries: 2,
			TTL:        time.Hour,
			Args:       map[string]any{"scope": "active"},
		},
		// Frequent warm of the hottest search partitions.
		{
			TaskType:   task.TypeCacheWarm,
			Queue:      hooks.QueueDefault,
			Spec:       "*/10 * * * *",
			Priority:   2,
			MaxRetries: 1,
			TTL:        10 * time.Minute,
		},
	}
}

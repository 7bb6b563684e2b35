package hooks

import (
	"time"

	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/task"
)

// Queue names shared by hooks, the scheduler, and worker configuration.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueBulk     = "bulk"
)

// entityPatterns derives the cache glob patterns touched by a changed
// resource, so one cache_invalidate task blast-clears every partition.
func entityPatterns(event events.Event) map[string]any {
	id, _ := event.Payload["resource_id"].(string)
	return map[string]any{"patterns": []string{"*:" + id}}
}

// Defaults is the static reaction table. Priorities encode the critical
// path: search visibility and cache correctness outrank embedding and
// recommendation freshness. Delays debounce rapid repeated triggers.
func Defaults() []Binding {
	return []Binding{
		// A new resource becomes searchable, scored, and embedded.
		{
			Event:      events.EventResourceCreated,
			TaskType:   task.TypeSearchIndexSync,
			Queue:      QueueCritical,
			Priority:   9,
			MaxRetries: 3,
			TTL:        time.Hour,
		},
		{
			Event:      events.EventResourceCreated,
			TaskType:   task.TypeEmbeddingRegen,
			Queue:      QueueBulk,
			Priority:   7,
			Delay:      5 * time.Second,
			MaxRetries: 3,
			TTL:        24 * time.Hour,
		},
		{
			Event:      events.EventResourceCreated,
			TaskType:   task.TypeQualityScore,
			Queue:      QueueDefault,
			Priority:   5,
			MaxRetries: 3,
			TTL:        24 * time.Hour,
		},

		// A mutated resource re-syncs the index, clears derived caches,
		// and regenerates embeddings after a short debounce.
		{
			Event:      events.EventResourceUpdated,
			TaskType:   task.TypeSearchIndexSync,
			Queue:      QueueCritical,
			Priority:   9,
			MaxRetries: 3,
			TTL:        time.Hour,
		},
		{
			Event:      events.EventResourceUpdated,
			TaskType:   task.TypeCacheInvalidate,
			Queue:      QueueCritical,
			Priority:   9,
			MaxRetries: 3,
			TTL:        time.Hour,
			Args:       entityPatterns,
		},
		{
			Event:      events.EventResourceUpdated,
			TaskType:   task.TypeEmbeddingRegen,
			Queue:      QueueBulk,
			Priority:   7,
			Delay:      5 * time.Second,
			MaxRetries: 3,
			TTL:        24 * time.Hour,
		},

		// A deleted resource only needs its derived state torn down.
		{
			Event:      events.EventResourceDeleted,
			TaskType:   task.TypeSearchIndexSync,
			Queue:      QueueCritical,
			Priority:   9,
			MaxRetries: 3,
			TTL:        time.Hour,
		},
		{
			Event:      events.EventResourceDeleted,
			TaskType:   task.TypeCacheInvalidate,
			Queue:      QueueCritical,
			Priority:   9,
			MaxRetries: 3,
			TTL:        time.Hour,
			Args:       entityPatterns,
		},

		// Collection membership changes refresh recommendations lazily.
		{
			Event:      events.EventCollectionUpdated,
			TaskType:   task.TypeRecommendationRefresh,
			Queue:      QueueBulk,
			Priority:   3,
			Delay:      30 * time.Second,
			MaxRetries: 2,
			TTL:        6 * time.Hour,
		},

		// Fresh labels feed back into search and recommendations.
		{
			Event:      events.EventClassificationCompleted,
			TaskType:   task.TypeSearchIndexSync,
			Queue:      QueueCritical,
			Priority:   8,
			MaxRetries: 3,
			TTL:        time.Hour,
		},
		{
			Event:      events.EventClassificationCompleted,
			TaskType:   task.TypeRecommendationRefresh,
			Queue:      QueueBulk,
			Priority:   3,
			Delay:      30 * time.Second,
			MaxRetries: 2,
			TTL:        6 * time.Hour,
		},

		// Degraded quality re-scores promptly; searchers should not keep
		// surfacing a resource the sweep flagged.
		{
			Event:      events.EventQualityDegraded,
			TaskType:   task.TypeQualityScore,
			Queue:      QueueDefault,
			Priority:   6,
			MaxRetries: 3,
			TTL:        24 * time.Hour,
		},
	}
}

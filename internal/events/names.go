package events

// Known event names emitted by the business layer. Payload key schemas are
// documented per name; all values are JSON-compatible.
const (
	// EventResourceCreated fires after a document resource is persisted.
	// Payload: resource_id (string), collection_id (string, optional).
	EventResourceCreated = "resource.created"

	// EventResourceUpdated fires after a document resource is mutated.
	// Payload: resource_id (string), changed_fields ([]string, optional).
	EventResourceUpdated = "resource.updated"

	// EventResourceDeleted fires after a document resource is removed.
	// Payload: resource_id (string).
	EventResourceDeleted = "resource.deleted"

	// EventCollectionUpdated fires after a collection's membership or
	// metadata changes. Payload: collection_id (string).
	EventCollectionUpdated = "collection.updated"

	// EventClassificationCompleted fires when a classification task has
	// stored fresh labels. Payload: resource_id (string), labels ([]string).
	EventClassificationCompleted = "classification.completed"

	// EventQualityDegraded fires when the quality sweep finds a resource
	// below threshold. Payload: resource_id (string), score (float64).
	EventQualityDegraded = "quality.degraded"
)

// Package metrics defines the Prometheus instrumentation shared by the
// broker, worker pool, and cache client. Exposition over HTTP is left to
// the monitoring layer; the core only maintains the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors the core components update.
type Metrics struct {
	Registry *prometheus.Registry

	// QueueDepth tracks the number of queued (ready + delayed) tasks per queue.
	QueueDepth *prometheus.GaugeVec

	// TasksTotal counts terminal task outcomes by type and status.
	TasksTotal *prometheus.CounterVec

	// CacheOps counts cache operations by result (hit, miss, invalidation).
	CacheOps *prometheus.CounterVec

	// EventsTotal counts emitted events by name.
	EventsTotal *prometheus.CounterVec
}

// New creates a Metrics bundle backed by a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "curator_queue_depth",
			Help: "Number of queued tasks per queue, including delayed tasks.",
		}, []string{"queue"}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_tasks_total",
			Help: "Terminal task outcomes by task type and status.",
		}, []string{"type", "status"}),
		CacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_cache_ops_total",
			Help: "Cache operations by result.",
		}, []string{"result"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_events_total",
			Help: "Emitted events by name.",
		}, []string{"name"}),
	}

	reg.MustRegister(m.QueueDepth, m.TasksTotal, m.CacheOps, m.EventsTotal)
	return m
}

// ObserveQueueDepth records the current depth of a queue. Safe on a nil
// receiver so components can run without instrumentation in tests.
func (m *Metrics) ObserveQueueDepth(queue string, depth int64) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// CountTask records a terminal task outcome.
func (m *Metrics) CountTask(taskType, status string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(taskType, status).Inc()
}

// CountCacheOp records a cache operation result.
func (m *Metrics) CountCacheOp(result string) {
	if m == nil {
		return
	}
	m.CacheOps.WithLabelValues(result).Inc()
}

// CountEvent records an emitted event.
func (m *Metrics) CountEvent(name string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(name).Inc()
}

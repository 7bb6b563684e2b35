package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/cache"
	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/metrics"
	"github.com/archivio/curator/internal/task"
)

// Emitter lets completed tasks cascade follow-up events without the pool
// depending on the concrete bus.
type Emitter interface {
	Emit(ctx context.Context, name string, payload map[string]any, opts ...events.EmitOption) events.Event
}

// Config holds worker pool settings.
type Config struct {
	// Count is the number of worker goroutines in this process.
	Count int

	// Queues are polled round-robin each cycle.
	Queues []string

	// PollInterval is the idle wait when every queue came up empty; the
	// only intended idle-wait point in the pool.
	PollInterval time.Duration

	// RetryBaseDelay seeds the exponential backoff for transient retries.
	RetryBaseDelay time.Duration

	// HistorySize bounds the job history ring.
	HistorySize int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Count:          4,
		Queues:         []string{"default"},
		PollInterval:   time.Second,
		RetryBaseDelay: 2 * time.Second,
		HistorySize:    512,
	}
}

// Pool runs N stateless workers against the shared broker. Horizontal
// scale-out is running more pool processes; the broker's atomic dequeue is
// the only coordination between them.
type Pool struct {
	broker    broker.Broker
	registry  *Registry
	resources *Resources
	emitter   Emitter
	cache     cache.Cache
	metrics   *metrics.Metrics

	history *task.History
	dead    *DeadLetters

	config Config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// now is swappable so tests can control staleness checks.
	now func() time.Time
}

// New creates a worker pool. emitter and cacheClient may be nil when the
// process has no bus or cache to cascade into.
func New(
	b broker.Broker,
	registry *Registry,
	resources *Resources,
	emitter Emitter,
	cacheClient cache.Cache,
	m *metrics.Metrics,
	config Config,
	logger *slog.Logger,
) *Pool {
	if config.Count <= 0 {
		config.Count = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 2 * time.Second
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 512
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		broker:    b,
		registry:  registry,
		resources: resources,
		emitter:   emitter,
		cache:     cacheClient,
		metrics:   m,
		history:   task.NewHistory(config.HistorySize),
		dead:      NewDeadLetters(config.HistorySize),
		config:    config,
		logger:    logger.With("component", "worker_pool"),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// History exposes the job history for monitoring surfaces.
func (p *Pool) History() *task.History { return p.history }

// DeadLetters exposes the terminal failure records.
func (p *Pool) DeadLetters() *DeadLetters { return p.dead }

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool",
		"worker_count", p.config.Count,
		"queues", p.config.Queues,
		"task_types", p.registry.Types())

	for i := 0; i < p.config.Count; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop shuts the pool down and waits for in-flight tasks. A task already
// executing runs to completion or failure; TTL is the only cancellation
// primitive for queued work.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Debug("starting worker")

	for {
		select {
		case <-p.ctx.Done():
			logger.Debug("stopping worker")
			return
		default:
		}

		if !p.drainOnce(logger) {
			select {
			case <-p.ctx.Done():
			case <-time.After(p.config.PollInterval):
			}
		}
	}
}

// drainOnce polls every queue once, reporting whether any task was
// processed.
func (p *Pool) drainOnce(logger *slog.Logger) bool {
	processed := false
	for _, queue := range p.config.Queues {
		d, err := p.broker.Dequeue(p.ctx, queue)
		if errors.Is(err, broker.ErrEmpty) {
			continue
		}
		if err != nil {
			if p.ctx.Err() == nil {
				logger.Error("dequeue failed", "queue", queue, "error", err)
			}
			continue
		}

		p.processTask(d, logger)
		processed = true
	}
	return processed
}

func (p *Pool) processTask(d *task.Descriptor, logger *slog.Logger) {
	logger = logger.With(
		"task_id", d.ID,
		"task_type", d.Type,
		"queue", d.Queue,
		"retry_count", d.RetryCount,
	)

	now := p.now()
	if d.Stale(now) {
		logger.Warn("skipping stale task",
			"enqueued_at", d.EnqueuedAt,
			"ttl_seconds", d.TTLSeconds)
		p.finish(d, task.StatusSkipped, 0, task.ErrStale.Error())
		return
	}

	// One attempt record per execution so diagnostics show the full retry
	// trail, not just the terminal outcome.
	p.history.Append(task.HistoryRecord{
		TaskID:     d.ID,
		Type:       d.Type,
		Status:     task.StatusProcessing,
		RetryCount: d.RetryCount,
	})

	logger.Info("processing task")

	// A claimed task runs to completion or failure; Stop never cancels it
	// mid-execution, so the compute function gets a context independent of
	// the pool's shutdown signal.
	ctx := context.Background()

	start := p.now()
	outcome, err := p.execute(ctx, d)
	duration := p.now().Sub(start)

	if err == nil {
		logger.Info("task completed", "duration_ms", duration.Milliseconds())
		p.finish(d, task.StatusCompleted, duration, "")
		p.cascade(ctx, d, outcome, logger)
		return
	}

	p.handleFailure(ctx, d, err, duration, logger)
}

// execute runs the bound compute function inside a scoped resource
// acquisition, converting panics into permanent failures so a task body
// can never crash the worker.
func (p *Pool) execute(ctx context.Context, d *task.Descriptor) (outcome Outcome, err error) {
	fn, ok := p.registry.Get(d.Type)
	if !ok {
		return Outcome{}, task.Permanent(fmt.Errorf("no compute function bound for task type %q", d.Type))
	}

	handle, err := p.resources.Acquire(ctx)
	if err != nil {
		// The store being unreachable is connection-class.
		return Outcome{}, task.Transient(err)
	}
	defer handle.Release()

	defer func() {
		if r := recover(); r != nil {
			err = task.Permanent(fmt.Errorf("compute function panicked: %v", r))
		}
	}()

	return fn(ctx, d.Args, handle)
}

func (p *Pool) handleFailure(ctx context.Context, d *task.Descriptor, err error, duration time.Duration, logger *slog.Logger) {
	kind := task.Classify(err)

	if kind == task.KindTransient && d.RetryCount < d.MaxRetries {
		delay := retryDelay(p.config.RetryBaseDelay, d.RetryCount)
		next, retryErr := d.Retry(p.now().Add(delay))
		if retryErr == nil {
			// Ack the consumed attempt before the retry copy goes back in:
			// both carry the same task ID, so a late ack could delete the
			// retry's fresh processing claim once another worker picks it up.
			p.ack(d, logger)
			if _, enqErr := p.broker.Enqueue(ctx, next); enqErr == nil {
				logger.Warn("transient failure, task re-enqueued",
					"error", err,
					"next_retry_count", next.RetryCount,
					"backoff", delay)
				return
			} else {
				logger.Error("failed to re-enqueue retry, dead-lettering",
					"error", enqErr)
			}
		}
	}

	switch kind {
	case task.KindTransient:
		logger.Error("retry budget exhausted", "error", err, "max_retries", d.MaxRetries)
		p.dead.Add(*d, err.Error())
	default:
		logger.Error("permanent task failure", "error", err)
	}

	p.finish(d, task.StatusFailed, duration, err.Error())
}

// finish acks the task and appends its terminal history record.
func (p *Pool) finish(d *task.Descriptor, status task.Status, duration time.Duration, errMsg string) {
	p.ack(d, p.logger)
	p.history.Append(task.HistoryRecord{
		TaskID:     d.ID,
		Type:       d.Type,
		Status:     status,
		DurationMS: duration.Milliseconds(),
		Error:      errMsg,
		RetryCount: d.RetryCount,
	})
	p.metrics.CountTask(d.Type, string(status))
}

func (p *Pool) ack(d *task.Descriptor, logger *slog.Logger) {
	if err := p.broker.Ack(context.Background(), d.Queue, d.ID); err != nil {
		logger.Error("failed to ack task", "task_id", d.ID, "error", err)
	}
}

// cascade emits follow-up events and clears the cache partitions the
// completed task declared stale. Both are best-effort.
func (p *Pool) cascade(ctx context.Context, d *task.Descriptor, outcome Outcome, logger *slog.Logger) {
	if p.emitter != nil {
		for _, spec := range outcome.FollowUp {
			p.emitter.Emit(ctx, spec.Name, spec.Payload,
				events.WithPriority(spec.Priority),
				events.WithCorrelationID(d.ID))
		}
	}

	if p.cache != nil {
		for _, pattern := range outcome.Invalidate {
			if _, err := p.cache.DeleteByPattern(ctx, pattern); err != nil {
				logger.Error("cache invalidation failed",
					"pattern", pattern,
					"error", err)
			}
		}
	}
}

// retryDelay computes the backoff before retry attempt n, exponential
// with jitter.
func retryDelay(base time.Duration, attempt int) time.Duration {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.2
	bo.MaxInterval = 10 * time.Minute
	bo.MaxElapsedTime = 0

	delay := bo.NextBackOff()
	for i := 0; i < attempt; i++ {
		delay = bo.NextBackOff()
	}
	return delay
}

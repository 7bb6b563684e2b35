// Package scheduler emits time-triggered tasks into the same queue and
// worker pipeline event-driven work flows through, so scheduled
// maintenance shares the exact same execution, retry, and observability
// machinery. No business logic lives here.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/task"
)

// Entry is one line of the static beat table.
type Entry struct {
	TaskType string
	Queue    string

	// Spec is a standard five-field cron expression.
	Spec string

	Priority   int
	MaxRetries int
	TTL        time.Duration

	// Args are passed to every produced task; nil enqueues empty args.
	Args map[string]any
}

// Beat evaluates the cron table with a single timer loop, enqueuing
// through the shared broker.
type Beat struct {
	cron    *cron.Cron
	broker  broker.Broker
	entries []Entry
	logger  *slog.Logger
}

// New creates a beat over the given table. Invalid cron expressions fail
// here, at startup, rather than silently never firing.
func New(entries []Entry, b broker.Broker, logger *slog.Logger) (*Beat, error) {
	beat := &Beat{
		cron:    cron.New(),
		broker:  b,
		entries: entries,
		logger:  logger.With("component", "scheduler"),
	}

	for _, entry := range entries {
		entry := entry
		if _, err := beat.cron.AddFunc(entry.Spec, func() { beat.fire(entry) }); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q for task %s: %w", entry.Spec, entry.TaskType, err)
		}
	}

	return beat, nil
}

// Start launches the timer loop.
func (b *Beat) Start() {
	b.logger.Info("starting scheduler", "entry_count", len(b.entries))
	b.cron.Start()
}

// Stop halts the timer loop and waits for any in-flight fire.
func (b *Beat) Stop() {
	<-b.cron.Stop().Done()
}

// fire enqueues one scheduled task. Failures are logged, never fatal: a
// missed beat is recovered by the next one.
func (b *Beat) fire(entry Entry) {
	d := task.New(entry.TaskType, entry.Queue, entry.Args,
		task.WithPriority(entry.Priority),
		task.WithMaxRetries(entry.MaxRetries),
		task.WithTTL(entry.TTL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := b.broker.Enqueue(ctx, d); err != nil {
		b.logger.Error("failed to enqueue scheduled task",
			"task_type", entry.TaskType,
			"queue", entry.Queue,
			"error", err)
		return
	}

	b.logger.Debug("scheduled task enqueued",
		"task_id", d.ID,
		"task_type", entry.TaskType,
		"queue", entry.Queue)
}

// Package main implements the worker process: it pulls tasks from the
// broker, executes the bound compute functions, and reports outcomes.
// Scaling out is running more copies of this binary; workers coordinate
// only through the broker's atomic dequeue.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/cache"
	"github.com/archivio/curator/internal/config"
	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/hooks"
	"github.com/archivio/curator/internal/metrics"
	"github.com/archivio/curator/internal/platform/logger"
	"github.com/archivio/curator/internal/platform/redisconn"
	"github.com/archivio/curator/internal/task"
	"github.com/archivio/curator/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, cleanup, err := initializeWorker(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize worker: %v", err)
	}
	defer cleanup()

	pool.Start()
	<-ctx.Done()
	pool.Stop()
}

func initializeWorker(ctx context.Context) (*worker.Pool, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("worker configuration loaded",
		"worker_count", cfg.Worker.Count,
		"queues", cfg.Worker.Queues,
		"redis_addr", cfg.Redis.Addr)

	redisClient, err := redisconn.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	m := metrics.New()

	taskBroker := broker.NewRedisBroker(redisClient, broker.RedisOptions{
		MaxDepth:   cfg.Broker.MaxQueueDepth,
		Visibility: cfg.Broker.VisibilityTimeout,
		Metrics:    m,
	}, appLogger)

	cacheClient := cache.NewRedisCache(redisClient, cfg.Cache.DefaultTTL, m, appLogger)

	// Workers cascade follow-up events through their own bus so completed
	// tasks schedule further work via the same hook table.
	bus := events.NewBus(cfg.Server.EventHistorySize, appLogger)
	bus.SetEventCounter(m)
	hookRegistry := hooks.NewRegistry(hooks.Defaults(), taskBroker, appLogger)
	if err := hookRegistry.RegisterAll(bus); err != nil {
		return nil, nil, err
	}

	var dbPool *pgxpool.Pool
	if cfg.Database.URL != "" {
		dbPool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
		}
	}

	registry := worker.NewRegistry()
	if err := bindComputeFuncs(registry, cacheClient); err != nil {
		return nil, nil, err
	}

	pool := worker.New(
		taskBroker,
		registry,
		worker.NewResources(dbPool),
		bus,
		cacheClient,
		m,
		worker.Config{
			Count:          cfg.Worker.Count,
			Queues:         cfg.Worker.Queues,
			PollInterval:   cfg.Worker.PollInterval,
			RetryBaseDelay: cfg.Worker.RetryBaseDelay,
			HistorySize:    cfg.Worker.HistorySize,
		},
		appLogger,
	)

	cleanup := func() {
		bus.Close()
		if dbPool != nil {
			dbPool.Close()
		}
		_ = redisClient.Close()
	}
	return pool, cleanup, nil
}

// bindComputeFuncs wires the compute functions this binary can run. The
// core owns only cache invalidation; the curation services (search
// indexing, embedding, scoring, recommendations) register their functions
// here when linked into the binary.
func bindComputeFuncs(registry *worker.Registry, cacheClient cache.Cache) error {
	return registry.Bind(task.TypeCacheInvalidate, worker.CacheInvalidateFunc(cacheClient))
}

// Package main implements the orchestrator-side entry point: it builds
// the event bus, registers the hook table, and exposes Emit to the
// request-handling layer. Expensive derived-data work never runs here; it
// is scheduled onto the broker for the worker processes.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/cache"
	"github.com/archivio/curator/internal/config"
	"github.com/archivio/curator/internal/events"
	"github.com/archivio/curator/internal/hooks"
	"github.com/archivio/curator/internal/metrics"
	"github.com/archivio/curator/internal/orchestrator"
	"github.com/archivio/curator/internal/platform/logger"
	"github.com/archivio/curator/internal/platform/redisconn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, err := initializeApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() { _ = orch.Close() }()

	// The HTTP layer serving the curation API mounts on the orchestrator
	// here; the core only guarantees Emit is ready for it.
	<-ctx.Done()
}

// initializeApp loads configuration and assembles the orchestration core.
func initializeApp(ctx context.Context) (*orchestrator.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("orchestrator configuration loaded",
		"log_level", cfg.Server.LogLevel,
		"redis_addr", cfg.Redis.Addr,
		"event_history_size", cfg.Server.EventHistorySize)

	redisClient, err := redisconn.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	taskBroker := broker.NewRedisBroker(redisClient, broker.RedisOptions{
		MaxDepth:   cfg.Broker.MaxQueueDepth,
		Visibility: cfg.Broker.VisibilityTimeout,
		Metrics:    m,
	}, appLogger)

	cacheClient := cache.NewRedisCache(redisClient, cfg.Cache.DefaultTTL, m, appLogger)

	bus := events.NewBus(cfg.Server.EventHistorySize, appLogger)
	bus.SetEventCounter(m)

	registry := hooks.NewRegistry(hooks.Defaults(), taskBroker, appLogger)

	return orchestrator.New(bus, taskBroker, cacheClient, registry, appLogger)
}

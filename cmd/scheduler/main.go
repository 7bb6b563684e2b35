// Package main implements the beat process: a single timer loop turning
// the static cron table into tasks on the shared broker, so scheduled
// maintenance runs through the same pipeline as event-triggered work.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/archivio/curator/internal/broker"
	"github.com/archivio/curator/internal/config"
	"github.com/archivio/curator/internal/metrics"
	"github.com/archivio/curator/internal/platform/logger"
	"github.com/archivio/curator/internal/platform/redisconn"
	"github.com/archivio/curator/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	beat, cleanup, err := initializeScheduler(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	defer cleanup()

	beat.Start()
	<-ctx.Done()
	beat.Stop()
}

func initializeScheduler(ctx context.Context) (*scheduler.Beat, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	if !cfg.Scheduler.Enabled {
		return nil, nil, fmt.Errorf("scheduler is disabled in configuration")
	}

	redisClient, err := redisconn.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	taskBroker := broker.NewRedisBroker(redisClient, broker.RedisOptions{
		MaxDepth:   cfg.Broker.MaxQueueDepth,
		Visibility: cfg.Broker.VisibilityTimeout,
		Metrics:    metrics.New(),
	}, appLogger)

	beat, err := scheduler.New(scheduler.Defaults(), taskBroker, appLogger)
	if err != nil {
		return nil, nil, err
	}

	appLogger.Info("scheduler initialized", "redis_addr", cfg.Redis.Addr)

	cleanup := func() { _ = redisClient.Close() }
	return beat, cleanup, nil
}

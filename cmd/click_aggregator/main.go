package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGrieder/linkedge/internal/bootstrap"
	"github.com/IgorGrieder/linkedge/internal/config"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	service := fmt.Sprintf("%s-click-aggregator", cfg.App.Name)
	if cfg.OTel.Enabled {
		shutdownTracer, err := telemetry.InitTracer(cfg.OTel.Endpoint, service, cfg.App.Version)
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.Warn("failed to shutdown tracer", zap.Error(err))
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer stores.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	clickLog, closeClickLog := bootstrap.OpenClickLog(cfg, rdb)
	defer closeClickLog()

	aggregator, closeAggregator, err := bootstrap.NewAggregator(ctx, cfg, rdb, clickLog, stores.Counters)
	if err != nil {
		logger.Fatal("failed to initialize click aggregator", zap.Error(err))
	}
	defer closeAggregator()

	logger.Info("click aggregator started",
		zap.String("worker_id", cfg.Aggregator.WorkerID),
		zap.Duration("interval", cfg.Aggregator.Interval),
		zap.Int("drain_limit", cfg.Aggregator.DrainLimit),
		zap.Int("batch_size", cfg.Aggregator.BatchSize),
		zap.Int("parallelism", cfg.Aggregator.Parallelism),
	)

	adminServer := bootstrap.StartAdminServer(cfg, bootstrap.HealthChecks(stores, rdb))

	run(ctx, aggregator, cfg.Aggregator.Interval, cfg.Aggregator.DrainLimit)
	logger.Info("click aggregator stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin server shutdown error", zap.Error(err))
	}
}

// run ticks until ctx is cancelled. A pass that drained a full page is
// followed immediately by another so a backlog clears without waiting.
func run(ctx context.Context, agg *clicks.Aggregator, interval time.Duration, drainLimit int) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for {
			// a pass in flight finishes even when shutdown starts
			summary, err := agg.Run(context.WithoutCancel(ctx))
			if err != nil {
				logger.Error("click aggregation pass failed", zap.Error(err))
				break
			}
			if summary.Skipped || summary.Drained < drainLimit || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

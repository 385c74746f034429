package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGrieder/linkedge/internal/bootstrap"
	"github.com/IgorGrieder/linkedge/internal/config"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/geo"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"github.com/IgorGrieder/linkedge/internal/processing/redirect"
	redisStorage "github.com/IgorGrieder/linkedge/internal/storage/redis"
	httpTransport "github.com/IgorGrieder/linkedge/internal/transport/http"
	"github.com/IgorGrieder/linkedge/pkg/httpclient"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting redirect edge",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("short_domain", cfg.Redirect.ShortDomain),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
			shutdownTracer = nil
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	ctx := context.Background()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer stores.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	clickLog, closeClickLog := bootstrap.OpenClickLog(cfg, rdb)
	defer closeClickLog()

	locator, err := geo.Open(cfg.GeoIP.DatabasePath)
	if err != nil {
		logger.Warn("GeoIP database unavailable, geo targeting disabled", zap.Error(err))
		locator = nil
	}
	defer func() { _ = locator.Close() }()

	resolver := redirect.NewResolver(redisStorage.NewLinkCache(rdb), stores.Links, redirect.ResolverOptions{
		Timeout:      cfg.Redirect.LookupTimeout,
		LastKnownTTL: cfg.Redirect.LastKnownTTL,
	})

	emitter := clicks.NewEmitter(clickLog, redisStorage.NewDeduper(rdb), clicks.EmitterOptions{
		Timeout:      cfg.Clicks.EmitTimeout,
		MaxInFlight:  cfg.Clicks.MaxInFlight,
		DedupeWindow: cfg.Clicks.DedupeWindow,
	})

	embedChecker := redirect.NewHeaderEmbedChecker(
		httpclient.NewClient(httpclient.Options{
			Timeout:     cfg.Redirect.EmbedCheckTimeout,
			MaxRetries:  0,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		}),
		cfg.Redirect.EmbedCheckTimeout,
		5*time.Minute,
	)

	var geoLocator redirect.GeoLocator
	if locator != nil {
		geoLocator = locator
	}

	engine := redirect.NewEngine(
		resolver,
		emitter,
		embedChecker,
		geoLocator,
		redirect.NewPasswordTokens(cfg.Redirect.PasswordSecret),
		redirect.EngineOptions{
			Aliases:        cfg.Redirect.DomainAliases,
			RedirectStatus: cfg.Redirect.Status,
		},
	)

	routerDeps := httpTransport.RouterDeps{
		Engine:  engine,
		Limiter: redisStorage.NewFixedWindowLimiter(rdb, "rate:cron", time.Minute),
	}
	if bootstrap.EdgeDrainsClickLog(cfg) {
		aggregator, closeAggregator, err := bootstrap.NewAggregator(ctx, cfg, rdb, clickLog, stores.Counters)
		if err != nil {
			logger.Fatal("Failed to initialize click aggregator", zap.Error(err))
		}
		defer closeAggregator()
		routerDeps.Aggregator = aggregator
	} else {
		logger.Info("Scheduler trigger not mounted, click log is drained by click_aggregator",
			zap.String("click_log", cfg.Clicks.LogBackend),
		)
	}

	router := httpTransport.NewRouter(cfg, routerDeps)
	adminServer := bootstrap.StartAdminServer(cfg, bootstrap.HealthChecks(stores, rdb))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("click_log", cfg.Clicks.LogBackend),
	)

	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("Shutting down server...", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Admin server shutdown error", zap.Error(err))
		}
		if err := emitter.Wait(shutdownCtx); err != nil {
			logger.Warn("Pending click appends abandoned", zap.Error(err))
		}
		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}
	}

	logger.Info("Server stopped gracefully")
}

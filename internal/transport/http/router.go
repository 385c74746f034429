package http

import (
	"net/http"

	"github.com/IgorGrieder/linkedge/internal/config"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkedge/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"POST /api/cron/clicks/aggregate": "cron.clicks.aggregate",
	"/":                               "redirect",
}

// RouterDeps are the collaborators the edge routes need. Aggregator and
// Limiter may be nil; without an aggregator the cron route is not mounted.
type RouterDeps struct {
	Engine     Decider
	Aggregator AggregationRunner
	Limiter    middleware.WindowCounter
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
	CronRateLimit int64
	CronSecret    string
	CronIssuer    string
}

func DefaultRouterOptions(cfg *config.Config) RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
		CronRateLimit: int64(cfg.Cron.RateLimitPerMinute),
		CronSecret:    cfg.Cron.SigningSecret,
		CronIssuer:    cfg.Cron.Issuer,
	}
}

func NewRouter(cfg *config.Config, deps RouterDeps) http.Handler {
	return NewRouterWithOptions(cfg, deps, DefaultRouterOptions(cfg))
}

func NewRouterWithOptions(cfg *config.Config, deps RouterDeps, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	if deps.Aggregator != nil {
		cronHandler := NewCronHandler(deps.Aggregator)
		cronMiddlewares := []func(http.Handler) http.Handler{}
		if opts.EnableCORS {
			cronMiddlewares = append(cronMiddlewares, middleware.CORSMiddleware)
		}
		if deps.Limiter != nil {
			cronMiddlewares = append(cronMiddlewares, middleware.RateLimitMiddleware(deps.Limiter, opts.CronRateLimit))
		}
		cronMiddlewares = append(cronMiddlewares, middleware.CronAuthMiddleware(opts.CronSecret, opts.CronIssuer))

		mux.Handle("POST /api/cron/clicks/aggregate", middleware.Chain(
			http.HandlerFunc(cronHandler.AggregateClicks),
			cronMiddlewares...,
		))
	}

	// Every other path on every host is a short link.
	mux.Handle("/", NewRedirectHandler(deps.Engine))

	var innerHandler http.Handler = mux
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		// the formatter runs before the mux, so resolve the pattern up front
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			_, pattern := mux.Handler(r)
			if name, ok := spanNames[pattern]; ok {
				return name
			}
			if pattern != "" {
				return pattern
			}
			return r.Method
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}

// NewAdminRouter serves health and metrics. It is mounted on its own port so
// that every path on the public listener stays a possible short-link key.
func NewAdminRouter(checks map[string]HealthCheck) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(checks)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	return mux
}

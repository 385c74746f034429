package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IgorGrieder/linkedge/internal/config"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	httpTransport "github.com/IgorGrieder/linkedge/internal/transport/http"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthChecks pings the link store and Redis.
func HealthChecks(stores *Stores, rdb *goredis.Client) map[string]httpTransport.HealthCheck {
	return map[string]httpTransport.HealthCheck{
		"store": stores.Check,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}

// StartAdminServer serves /health and /metrics on ADMIN_PORT in the
// background. Callers shut it down with Shutdown.
func StartAdminServer(cfg *config.Config, checks map[string]httpTransport.HealthCheck) *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.AdminPort),
		Handler:           httpTransport.NewAdminRouter(checks),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server stopped", zap.Error(err))
		}
	}()

	logger.Info("admin server starting", zap.String("port", cfg.Server.AdminPort))
	return server
}

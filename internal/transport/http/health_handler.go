package http

import (
	"context"
	"net/http"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/pkg/httputils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthResponse struct {
	Status    string            `json:"status" example:"ok"`
	Timestamp string            `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	now     func() time.Time
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

// Health reports ok when every registered dependency answers; otherwise
// degraded with HTTP 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	httputils.RespondJSON(w, status, resp)
}

func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}

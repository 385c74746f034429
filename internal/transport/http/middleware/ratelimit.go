package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkedge/internal/constants"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/pkg/httputils"
	"go.uber.org/zap"
)

// WindowCounter increments and returns the hit count for key in the current
// window.
type WindowCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// RateLimitMiddleware caps hits per client IP per window. Counter failures
// fail open.
func RateLimitMiddleware(counter WindowCounter, limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 60
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			count, err := counter.Incr(ctx, "ip:"+ClientIP(r))
			cancel()
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				httputils.WriteAPIError(w, r, constants.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

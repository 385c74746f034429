package middleware

import (
	"net/http"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LoggingMiddleware logs each request with zap, including trace context when
// a span is active.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newStatusRecorder(w)

		next.ServeHTTP(wrapped, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("host", r.Host),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		}

		if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}

		if wrapped.status >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Debug("request completed", fields...)
	})
}

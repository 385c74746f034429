package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware opens the JSON API routes to browser callers. Redirects do
// not go through it.
func CORSMiddleware(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			CronSignatureHeader,
			"X-Correlation-Id",
			"traceparent",
			"tracestate",
			"baggage",
		},
		ExposedHeaders: []string{"X-Correlation-Id"},
	})

	return c.Handler(next)
}

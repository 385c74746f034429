package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/IgorGrieder/linkedge"

var (
	// Tracer is the global OpenTelemetry tracer
	Tracer trace.Tracer = otel.Tracer(instrumentationName)
	// TracerProvider is exposed for use with otelhttp and other instrumentation.
	// It stays nil when tracing is disabled.
	TracerProvider *sdktrace.TracerProvider
)

// parseEndpoint extracts the host from the OTEL endpoint URL
func parseEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimSuffix(endpoint, "/v1/traces")
	endpoint = strings.TrimSuffix(endpoint, "/v1/logs")
	return endpoint
}

// InitTracer initializes the OpenTelemetry tracer and returns a shutdown function
func InitTracer(otelEndpoint, serviceName, serviceVersion string) (func(context.Context) error, error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(parseEndpoint(otelEndpoint)),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	TracerProvider = tp
	otel.SetTracerProvider(tp)
	Tracer = otel.Tracer(serviceName)

	return tp.Shutdown, nil
}

// Start opens a span on the global tracer. With tracing disabled it returns
// a non-recording span.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

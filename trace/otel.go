package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelConfig configures the OTLP tracer provider.
type OTelConfig struct {
	ServiceName string
	Endpoint    string // collector endpoint, e.g. "localhost:4317"
	Environment string
	SampleRatio float64 // 0 disables sampling config and uses AlwaysSample
}

// InitOTel sets up a gRPC OTLP exporter and installs it as the global tracer
// provider. The returned shutdown function flushes pending spans.
func InitOTel(ctx context.Context, cfg OTelConfig) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// StartSpan starts a span on the global tracer, attaching the platform trace ID
// (if present in ctx) as an attribute.
func StartSpan(ctx context.Context, tracer, name string) (context.Context, oteltrace.Span) {
	ctx, span := otel.Tracer(tracer).Start(ctx, name)
	if id := FromContext(ctx); id != "" {
		span.SetAttributes(attribute.String("platform.trace_id", id))
	}
	return ctx, span
}

package infrastructure

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"fundata/internal/config"
)

const (
	serviceName    = "fundata"
	serviceVersion = "1.0.0"
)

var (
	tracerMu       sync.Mutex
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	tracingEnabled bool
)

// InitTracing sets up the OpenTelemetry stdout exporter. With tracing
// disabled it is a no-op and StartSpan falls through to the ambient
// span, so call sites never branch on the setting.
func InitTracing(cfg config.TracingConfig) error {
	tracerMu.Lock()
	defer tracerMu.Unlock()

	tracingEnabled = cfg.Enabled
	if !tracingEnabled {
		return nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return err
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(serviceName)
	return nil
}

// ShutdownTracing flushes pending spans. Safe to call when tracing
// was never initialized.
func ShutdownTracing(ctx context.Context) error {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	if tracerProvider != nil {
		err := tracerProvider.Shutdown(ctx)
		tracerProvider = nil
		tracer = nil
		tracingEnabled = false
		return err
	}
	return nil
}

// StartSpan begins a span on the configured tracer. When tracing is
// off it returns the context unchanged with the ambient span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	tracerMu.Lock()
	t, on := tracer, tracingEnabled
	tracerMu.Unlock()
	if !on || t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, name, opts...)
}

// TracingEnabled reports whether InitTracing installed a provider.
func TracingEnabled() bool {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	return tracingEnabled
}

// Package observability wires the correlation_id/causation_id propagation
// the spec treats as implicit (AI -> OR -> AW -> TS) onto an OpenTelemetry
// tracer, and exposes Prometheus metrics for each process role. Neither is
// a spec feature; both are ambient operational surface.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the payauth-platform tracer for the given component name
// ("ingress", "event-log", "auth-worker", "token-store", ...). With no SDK
// configured by the process, otel's global no-op tracer is returned, so
// every Start/End call is safe even when tracing isn't wired to a
// collector.
func Tracer(component string) trace.Tracer {
	return otel.Tracer("payauth-platform/" + component)
}

// InitTracing installs a process-wide TracerProvider that samples every
// span and batches them through exporter (nil disables export but still
// records spans, useful for local development without a collector). role
// is "api", "worker", or "relay" and is attached as a resource attribute so
// traces from the three process roles are distinguishable downstream.
func InitTracing(ctx context.Context, role string, exporter sdktrace.SpanExporter) (shutdown func(context.Context) error, err error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", "payauth-platform"),
			attribute.String("service.namespace", role),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Package observability wires tracing (OpenTelemetry over OTLP/gRPC) and the
// Prometheus collectors shared by the services and middleware.
package observability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/trustedloops-edge/internal/config"
)

// TracerName is the instrumentation scope of the gateway's own spans.
const TracerName = "github.com/tbourn/trustedloops-edge"

// Hosting runtimes, recorded as the edge.runtime resource attribute.
const (
	RuntimeServer = "server"
	RuntimeLambda = "lambda"
)

// Replaced in tests.
var (
	newExporter = func(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
		return otlptrace.New(ctx, otlptracegrpc.NewClient(grpcOptions(cfg)...))
	}
	newResource = func(ctx context.Context, cfg config.OTELConfig, version, runtime string) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
			semconv.ServiceInstanceID(uuid.NewString()),
			attribute.String("edge.runtime", runtime),
		))
	}
)

func grpcOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

// Tracer returns the gateway tracer. Until SetupOTel installs a provider the
// spans it starts are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// SetupOTel installs a global tracer provider exporting to cfg.Endpoint and
// returns its shutdown. With tracing disabled it changes nothing. Globals are
// only touched once the exporter and resource have been built.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version, runtime string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if runtime == "" {
		runtime = RuntimeServer
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}
	res, err := newResource(ctx, cfg, version, runtime)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		spanProcessor(runtime, exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// spanProcessor exports synchronously on Lambda, which freezes the process
// between invocations and would strand a batch.
func spanProcessor(runtime string, exp sdktrace.SpanExporter) sdktrace.TracerProviderOption {
	if runtime == RuntimeLambda {
		return sdktrace.WithSyncer(exp)
	}
	return sdktrace.WithBatcher(exp)
}

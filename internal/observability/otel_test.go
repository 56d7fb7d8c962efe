package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tbourn/trustedloops-edge/internal/config"
)

// withOTelSeams restores the globals and constructor seams after the test and
// routes exports to an in-memory exporter.
func withOTelSeams(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	exp, res := newExporter, newResource
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
		newExporter, newResource = exp, res
	})

	mem := tracetest.NewInMemoryExporter()
	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) { return mem, nil }
	return mem
}

func tracingOn() config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: true, Endpoint: "localhost:4317", ServiceName: "trustedloops-edge", SampleRatio: 1}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	withOTelSeams(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{}, "v1", RuntimeServer)
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("provider replaced while disabled")
	}
	_, span := Tracer().Start(context.Background(), "noop")
	span.End()
}

func TestSetupOTel_LambdaExportsSynchronously(t *testing.T) {
	mem := withOTelSeams(t)

	shutdown, err := SetupOTel(context.Background(), tracingOn(), "v1.2.3", RuntimeLambda)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := Tracer().Start(context.Background(), "feedback.send")
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	span.End()

	if carrier.Get("traceparent") == "" {
		t.Fatalf("traceparent not injected")
	}
	spans := mem.GetSpans()
	if len(spans) != 1 || spans[0].Name != "feedback.send" {
		t.Fatalf("spans=%v", spans)
	}
	attrs := spans[0].Resource.Set()
	if v, _ := attrs.Value("edge.runtime"); v.AsString() != RuntimeLambda {
		t.Fatalf("edge.runtime=%q", v.AsString())
	}
	if v, _ := attrs.Value("service.version"); v.AsString() != "v1.2.3" {
		t.Fatalf("service.version=%q", v.AsString())
	}
}

func TestSetupOTel_ServerBatches(t *testing.T) {
	mem := withOTelSeams(t)

	shutdown, err := SetupOTel(context.Background(), tracingOn(), "v1", "")
	if err != nil {
		t.Fatal(err)
	}
	_, span := Tracer().Start(context.Background(), "feed.fetch")
	span.End()

	defer func() { _ = shutdown(context.Background()) }()

	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		t.Fatalf("provider=%T", otel.GetTracerProvider())
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	spans := mem.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected the batch to flush, got %d spans", len(spans))
	}
	if v, _ := spans[0].Resource.Set().Value(attribute.Key("edge.runtime")); v.AsString() != RuntimeServer {
		t.Fatalf("empty runtime should default to server, got %q", v.AsString())
	}
}

func TestSetupOTel_FailuresLeaveGlobals(t *testing.T) {
	cases := []struct {
		name string
		fail func()
	}{
		{"exporter", func() {
			newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
				return nil, errors.New("dial collector")
			}
		}},
		{"resource", func() {
			newResource = func(context.Context, config.OTELConfig, string, string) (*resource.Resource, error) {
				return nil, errors.New("bad schema")
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			withOTelSeams(t)
			tc.fail()
			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()

			if _, err := SetupOTel(context.Background(), tracingOn(), "v0", RuntimeServer); err == nil {
				t.Fatalf("expected error")
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestGRPCOptions(t *testing.T) {
	cfg := tracingOn()
	if n := len(grpcOptions(cfg)); n != 2 {
		t.Fatalf("insecure options=%d", n)
	}
	cfg.Insecure = false
	if n := len(grpcOptions(cfg)); n != 2 {
		t.Fatalf("tls options=%d", n)
	}
}

func TestDefaultExporter_BuildsWithoutCollector(t *testing.T) {
	exp, err := newExporter(context.Background(), tracingOn())
	if err != nil {
		t.Fatalf("grpc client connects lazily, got %v", err)
	}
	_ = exp.Shutdown(context.Background())
}

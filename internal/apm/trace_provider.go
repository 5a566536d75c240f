package apm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/stablearb/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "ZIPKIN_PROVIDER"
	OTLPGRPCProvider Provider = "OTLP_GRPC_PROVIDER"
	OTLPHTTPProvider Provider = "OTLP_HTTP_PROVIDER"
	ConsoleProvider  Provider = "CONSOLE_PROVIDER"
	EmptyProvider    Provider = "EMPTY_PROVIDER"
)

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

// Config selects and addresses the span exporter.
type Config struct {
	Provider    Provider
	ServiceName string
	Endpoint    string
	Headers     map[string]string
}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Provider {
	case ZipkinProvider:
		return zipkin.New(cfg.Endpoint)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(cfg.Headers),
		)
	case OTLPHTTPProvider:
		return otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithHeaders(cfg.Headers),
		)
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, fmt.Errorf("unknown trace provider %q", cfg.Provider)
}

// NewTraceProvider installs a global tracer provider exporting to cfg.Provider.
// EmptyProvider and an unknown provider leave the global no-op tracer in place;
// the latter is logged.
func NewTraceProvider(log logger.LoggerInterface, cfg Config) (TraceProvider, error) {
	switch cfg.Provider {
	case EmptyProvider, "":
		return NewEmptyTraceProvider(), nil
	case ZipkinProvider, OTLPGRPCProvider, OTLPHTTPProvider, ConsoleProvider:
	default:
		log.Warn(context.Background(), "trace provider not found, tracing disabled", "provider", cfg.Provider)
		return NewEmptyTraceProvider(), nil
	}

	exp, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Provider, err)
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("otel.provider", string(cfg.Provider)),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(context.Background(), "tracing initialized", "provider", cfg.Provider, "endpoint", cfg.Endpoint)

	return &traceProvider{tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}

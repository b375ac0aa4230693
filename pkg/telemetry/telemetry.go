// Package telemetry wires OpenTelemetry tracing. When tracing is disabled the
// package hands out no-op spans, so callers never need to check.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"islandflow/pkg/config"
)

const instrumentationName = "islandflow"

type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Version     string
	Environment string
	SampleRate  float64
	Insecure    bool
}

// FromConfig maps the tracing and app sections of the service configuration.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	}
}

// Provider owns the SDK tracer provider, if one was started.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

var (
	globalMu       sync.RWMutex
	globalProvider *Provider
)

// Init starts an OTLP/gRPC exporter when cfg.Enabled is set and installs the
// provider globally. A disabled config yields a provider backed by the
// global no-op tracer.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		p := &Provider{tracer: otel.Tracer(instrumentationName)}
		setGlobal(p)
		return p, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return InitWithExporter(cfg, exporter)
}

// InitWithExporter installs a provider that batches spans to exporter.
func InitWithExporter(cfg Config, exporter sdktrace.SpanExporter) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := &Provider{
		tp:     tp,
		tracer: tp.Tracer(instrumentationName),
	}
	setGlobal(p)
	return p, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

func setGlobal(p *Provider) {
	globalMu.Lock()
	globalProvider = p
	globalMu.Unlock()
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp != nil {
		return p.tp.Shutdown(ctx)
	}
	return nil
}

// ForceFlush exports pending spans without stopping the provider.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.tp != nil {
		return p.tp.ForceFlush(ctx)
	}
	return nil
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Get returns the installed provider, or a no-op one before Init.
func Get() *Provider {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()

	if p == nil {
		return &Provider{tracer: otel.Tracer(instrumentationName)}
	}
	return p
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Get().tracer.Start(ctx, name, opts...)
}

func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetError records err on the current span and marks it failed.
func SetError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordError records err without changing the span status.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	trace.SpanFromContext(ctx).RecordError(err, opts...)
}

func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

func WithAttributes(attrs ...attribute.KeyValue) trace.SpanStartOption {
	return trace.WithAttributes(attrs...)
}

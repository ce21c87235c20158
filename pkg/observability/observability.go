// Package observability wires OpenTelemetry tracing and metrics for the
// majel pipeline and builds its slog logger.
//
// Every pipeline operation runs under TrackOperation, which opens a span and
// counts the operation, its duration and its failures by reason. Builds,
// rejected override batches and crew verdicts have their own counters.
// With telemetry disabled the provider is backed by no-op implementations.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Config configures the OTLP exporters.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string        // e.g., "localhost:4317" for gRPC
	SampleRate     float64       // 0.0 to 1.0
	BatchTimeout   time.Duration // How long to wait before sending batched spans
	Enabled        bool
	Insecure       bool // plaintext gRPC, dev only
}

const (
	instrumentationName = "github.com/Guffawaffle/majel"
	exportInterval      = 15 * time.Second
)

// DefaultConfig returns the CLI defaults. Telemetry is off until enabled.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "majel",
		ServiceVersion: "dev",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// Provider records pipeline spans and metrics.
type Provider struct {
	tracer   trace.Tracer
	logger   *slog.Logger
	shutdown []func(context.Context) error

	operations metric.Int64Counter
	failures   metric.Int64Counter
	duration   metric.Float64Histogram
	effects    metric.Int64Counter
	unmapped   metric.Int64Counter
	rejected   metric.Int64Counter
	verdicts   metric.Int64Counter
}

// New starts OTLP trace and metric export when config enables it and
// installs the providers globally. A disabled config yields Noop().
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return Noop(), nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, config, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, config, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	p, err := NewFromProviders(tp, mp)
	if err != nil {
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	p.shutdown = []func(context.Context) error{mp.Shutdown, tp.Shutdown}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint,
		"sample_rate", config.SampleRate,
	)
	return p, nil
}

// NewFromProviders records into existing providers. The caller keeps
// ownership of them; Shutdown does not stop them.
func NewFromProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Provider, error) {
	p := &Provider{
		tracer: tp.Tracer(instrumentationName),
		logger: slog.Default().With("component", "observability"),
	}
	if err := p.initInstruments(mp.Meter(instrumentationName)); err != nil {
		return nil, fmt.Errorf("observability: instruments: %w", err)
	}
	return p, nil
}

// Noop returns a provider that records nothing.
func Noop() *Provider {
	p, err := NewFromProviders(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		// No-op meters never fail to create instruments.
		panic(err)
	}
	return p
}

func newTracerProvider(ctx context.Context, config *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.OTLPEndpoint)}
	if config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SampleRate)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(config.BatchTimeout)),
		sdktrace.WithSampler(sampler),
	), nil
}

func newMeterProvider(ctx context.Context, config *Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	), nil
}

func (p *Provider) initInstruments(m metric.Meter) error {
	var err error
	counter := func(name, desc, unit string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = m.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		return c
	}

	p.operations = counter("majel.operations.total", "Pipeline operations started", "{operation}")
	p.failures = counter("majel.errors.total", "Pipeline operations that failed, by reason", "{error}")
	p.effects = counter("majel.build.effects", "Resolved effects written by builds", "{effect}")
	p.unmapped = counter("majel.build.unmapped", "Unmapped entries written by builds", "{entry}")
	p.rejected = counter("majel.overrides.rejected", "Override batches rejected, by rule", "{batch}")
	p.verdicts = counter("majel.crew.verdicts", "Crew evaluations, by verdict", "{evaluation}")
	if err != nil {
		return err
	}

	p.duration, err = m.Float64Histogram("majel.operation.duration",
		metric.WithDescription("Pipeline operation duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	return err
}

// Shutdown flushes and stops providers started by New.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, stop := range p.shutdown {
		if err := stop(ctx); err != nil {
			p.logger.ErrorContext(ctx, "telemetry shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}
	p.shutdown = nil
	return errors.Join(errs...)
}

// TrackOperation opens a span for the named operation and counts it. The
// returned function ends the span; a non-nil error marks it failed and is
// counted under its reason.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	op := AttrOperation.String(name)
	p.operations.Add(ctx, 1, metric.WithAttributes(op))

	return ctx, func(err error) {
		p.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(op))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.failures.Add(ctx, 1, metric.WithAttributes(op, AttrReason.String(Reason(err))))
		}
		span.End()
	}
}

// RecordBuild counts what a build wrote and tags the current span.
func (p *Provider) RecordBuild(ctx context.Context, version string, effects, unmapped int) {
	SetSpanAttributes(ctx, BuildOperation(version, effects, unmapped)...)
	p.effects.Add(ctx, int64(effects))
	p.unmapped.Add(ctx, int64(unmapped))
}

// RecordRejectedBatch counts an override batch rejected by rule.
func (p *Provider) RecordRejectedBatch(ctx context.Context, rule string) {
	SetSpanAttributes(ctx, AttrReason.String(rule))
	p.rejected.Add(ctx, 1, metric.WithAttributes(AttrReason.String(rule)))
}

// RecordVerdict counts a crew evaluation and tags the current span.
func (p *Provider) RecordVerdict(ctx context.Context, verdict string, cached bool) {
	SetSpanAttributes(ctx, AttrVerdict.String(verdict), AttrCacheHit.Bool(cached))
	p.verdicts.Add(ctx, 1, metric.WithAttributes(AttrVerdict.String(verdict), AttrCacheHit.Bool(cached)))
}

// Reason classifies err for the errors counter. Errors that name their own
// rule (override rejections) report it; context errors are "canceled" or
// "deadline"; everything else is "error".
func Reason(err error) string {
	var named interface{ Reason() string }
	switch {
	case errors.As(err, &named):
		return named.Reason()
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	default:
		return "error"
	}
}

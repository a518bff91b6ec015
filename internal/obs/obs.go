// Package obs provides request metrics and tracing for the client
// pipeline, grounded on the shape of the teacher's observability
// abstraction but backed by real go.opentelemetry.io instrumentation
// (spec §4.1 step 2 "increment a request counter and start a timer").
package obs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Provider bundles the counters, histogram and tracer a Client needs
// for one service. Counters are labelled by operation so a single
// Provider instrument set can be shared across all operations of a
// service; successes and failures go to separate counters.
type Provider struct {
	requests  metric.Int64Counter
	errors    metric.Int64Counter
	latency   metric.Float64Histogram
	tracer    trace.Tracer
	reader    *sdkmetric.MeterProvider
}

// New builds a Provider backed by its own Prometheus registry (so
// multiple Providers, e.g. one per service client, never collide on
// metric names) exported through the otel Prometheus bridge.
// serviceName labels every metric and trace emitted.
func New(serviceName string) (*Provider, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := mp.Meter(serviceName)

	requests, err := meter.Int64Counter(
		"aws_requests_total",
		metric.WithDescription("total number of requests attempted"),
	)
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter(
		"aws_request_errors",
		metric.WithDescription("total number of requests that returned an error"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"awssdk_request_duration_seconds",
		metric.WithDescription("request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{
		requests: requests,
		errors:   errs,
		latency:  latency,
		tracer:   otel.Tracer(serviceName),
		reader:   mp,
	}, nil
}

// Shutdown releases the underlying meter provider's resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.reader == nil {
		return nil
	}
	return p.reader.Shutdown(ctx)
}

// Timer tracks one in-flight request's span and start time (spec §4.1
// step 2/9: counter on entry, duration recorded and error-count
// incremented on exit).
type Timer struct {
	p        *Provider
	start    time.Time
	operation string
	span     trace.Span
	ctx      context.Context
}

// Start increments the request counter, opens a span, and returns a
// Timer plus the span-carrying context to thread through the pipeline.
func (p *Provider) Start(ctx context.Context, operation string) (context.Context, *Timer) {
	if p == nil {
		return ctx, nil
	}
	attrs := attribute.String("operation", operation)
	p.requests.Add(ctx, 1, metric.WithAttributes(attrs))

	spanCtx, span := p.tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindClient))
	return spanCtx, &Timer{p: p, start: time.Now(), operation: operation, span: span, ctx: spanCtx}
}

// Stop records the request's duration and, when err is non-nil,
// increments the error counter and marks the span as errored.
func (t *Timer) Stop(err error) {
	if t == nil {
		return
	}
	elapsed := time.Since(t.start).Seconds()
	attrs := attribute.String("operation", t.operation)
	t.p.latency.Record(t.ctx, elapsed, metric.WithAttributes(attrs))

	if err != nil {
		t.p.errors.Add(t.ctx, 1, metric.WithAttributes(attrs))
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
	} else {
		t.span.SetStatus(codes.Ok, "")
	}
	t.span.End()
}

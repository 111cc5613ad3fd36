package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options tunes the providers built by New.
type Options struct {
	// Registerer receives the otel prometheus exporter. Nil means the
	// process-wide default registry.
	Registerer promclient.Registerer
	// TracingEnabled turns on the SDK tracer provider; otherwise spans are no-ops.
	TracingEnabled bool
	SampleRatio    float64
}

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	commandCounter otelmetric.Int64Counter
	renderDuration otelmetric.Float64Histogram
}

func New(serviceName string, opts Options) *Observability {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}
	if opts.TracingEnabled {
		o.tracerProvider = newTracerProvider(opts.SampleRatio)
		o.tracer = o.tracerProvider.Tracer(serviceName)
	}

	var exporterOpts []prometheus.Option
	if opts.Registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(opts.Registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	commandCounter, _ := meter.Int64Counter(
		"commands_processed",
		otelmetric.WithDescription("Number of protocol commands processed"),
	)

	renderDuration, _ := meter.Float64Histogram(
		"render_duration",
		otelmetric.WithDescription("Rendering engine invocation duration"),
		otelmetric.WithUnit("ms"),
	)

	o.meterProvider = provider
	o.meter = meter
	o.commandCounter = commandCounter
	o.renderDuration = renderDuration
	return o
}

func (o *Observability) RecordCommand(ctx context.Context, action, status string) {
	if o.commandCounter != nil {
		o.commandCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordRenderDuration(ctx context.Context, duration time.Duration, status string) {
	if o.renderDuration != nil {
		o.renderDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}

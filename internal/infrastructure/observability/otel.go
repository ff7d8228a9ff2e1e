package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/recommendation-metrics"

// Metrics holds the evaluation instruments
type Metrics struct {
	RunCount       metric.Int64Counter
	CaseCount      metric.Int64Counter
	SkippedCount   metric.Int64Counter
	RunDuration    metric.Float64Histogram
	SourceDuration metric.Float64Histogram
}

// Setup initializes OpenTelemetry tracing and metrics export over OTLP/gRPC
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		_ = tracerProvider.Shutdown(ctx)
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes evaluation metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	runCount, err := meter.Int64Counter(
		"evaluation.run.count",
		metric.WithDescription("Number of evaluation runs"),
	)
	if err != nil {
		return nil, err
	}

	caseCount, err := meter.Int64Counter(
		"evaluation.case.count",
		metric.WithDescription("Number of cases scored"),
	)
	if err != nil {
		return nil, err
	}

	skippedCount, err := meter.Int64Counter(
		"evaluation.case.skipped",
		metric.WithDescription("Number of cases excluded from recall"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"evaluation.run.duration",
		metric.WithDescription("Evaluation run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sourceDuration, err := meter.Float64Histogram(
		"evaluation.source.duration",
		metric.WithDescription("Case loading duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RunCount:       runCount,
		CaseCount:      caseCount,
		SkippedCount:   skippedCount,
		RunDuration:    runDuration,
		SourceDuration: sourceDuration,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRunMetric records a finished evaluation run
func RecordRunMetric(ctx context.Context, metrics *Metrics, source string, k, cases, skipped int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("evaluation.source", source),
		attribute.Int("evaluation.k", k),
	)
	metrics.RunCount.Add(ctx, 1, attrs)
	metrics.CaseCount.Add(ctx, int64(cases), attrs)
	metrics.SkippedCount.Add(ctx, int64(skipped), attrs)
	metrics.RunDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordSourceMetric records how long a source took to produce its cases
func RecordSourceMetric(ctx context.Context, metrics *Metrics, source string, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.SourceDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String("evaluation.source", source)))
}

package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

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
	"google.golang.org/grpc"
)

const (
	defaultServiceName  = "locker"
	defaultOTelEndpoint = "localhost:4317"

	// LatencyMetric is the histogram every RecordLatency call lands in.
	LatencyMetric = "locker.operation.duration"
)

// MetricsClient interface for metrics operations
type MetricsClient interface {
	// Increment increments a counter by the given amount
	Increment(ctx context.Context, name string, value int64, attributes ...string)
	// RecordLatency records the duration of an operation
	RecordLatency(ctx context.Context, duration time.Duration, attributes ...string) error
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) Increment(context.Context, string, int64, ...string) {}

func (NoopMetrics) RecordLatency(context.Context, time.Duration, ...string) error { return nil }

// OTelMetrics implements MetricsClient using OpenTelemetry
type OTelMetrics struct {
	meter    metric.Meter
	logger   *SLogger
	counters sync.Map // name -> metric.Int64Counter

	latencyOnce sync.Once
	latency     metric.Float64Histogram
	latencyErr  error
}

// InitProvider initializes OpenTelemetry with the given configuration.
// The returned function flushes and stops both providers.
func InitProvider(ctx context.Context, cfg Config) (func(), error) {
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = defaultOTelEndpoint
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTelEndpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
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
		otlpmetricgrpc.WithEndpoint(cfg.OTelEndpoint),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName)),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(10*time.Second)),
		),
	)
	otel.SetMeterProvider(meterProvider)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error shutting down tracer provider: %v\n", err)
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error shutting down meter provider: %v\n", err)
		}
	}, nil
}

// NewMetricsClient creates a metrics client on the global meter provider.
func NewMetricsClient(cfg Config, l *SLogger) (*OTelMetrics, error) {
	return NewMetricsClientWithProvider(otel.GetMeterProvider(), cfg, l), nil
}

// NewMetricsClientWithProvider creates a metrics client on an explicit provider.
func NewMetricsClientWithProvider(mp metric.MeterProvider, cfg Config, l *SLogger) *OTelMetrics {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	if l == nil {
		l = NewNopLogger()
	}

	return &OTelMetrics{
		meter:  mp.Meter(name, metric.WithInstrumentationVersion(cfg.ServiceVersion)),
		logger: l,
	}
}

// Increment increments a counter metric
func (m *OTelMetrics) Increment(ctx context.Context, name string, value int64, attributes ...string) {
	counter, err := m.counter(name)
	if err != nil {
		m.logger.Errorf("Failed to create counter metric '%s': %v", name, err)
		return
	}

	counter.Add(ctx, value, metric.WithAttributes(attributesFromTags(attributes)...))
}

// RecordLatency records an operation duration in seconds.
func (m *OTelMetrics) RecordLatency(ctx context.Context, duration time.Duration, attributes ...string) error {
	m.latencyOnce.Do(func() {
		m.latency, m.latencyErr = m.meter.Float64Histogram(LatencyMetric,
			metric.WithUnit("s"),
			metric.WithDescription("Duration of lock operations including retries"),
		)
	})
	if m.latencyErr != nil {
		return fmt.Errorf("failed to create latency histogram: %w", m.latencyErr)
	}

	m.latency.Record(ctx, duration.Seconds(), metric.WithAttributes(attributesFromTags(attributes)...))
	return nil
}

func (m *OTelMetrics) counter(name string) (metric.Int64Counter, error) {
	if c, ok := m.counters.Load(name); ok {
		return c.(metric.Int64Counter), nil
	}

	c, err := m.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	actual, _ := m.counters.LoadOrStore(name, c)
	return actual.(metric.Int64Counter), nil
}

// attributesFromTags converts key/value string pairs to attributes; a trailing odd key is dropped.
func attributesFromTags(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}

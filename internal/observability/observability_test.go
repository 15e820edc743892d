// internal/observability/observability_test.go
package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*OTelMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m := NewMetricsClientWithProvider(mp, Config{ServiceName: "test-service", ServiceVersion: "1.0.0"}, nil)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestAttributesFromTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		expected int
	}{
		{"Empty tags", []string{}, 0},
		{"Even number of tags", []string{"key1", "value1", "key2", "value2"}, 2},
		{"Odd number of tags", []string{"key1", "value1", "key2", "value2", "orphan"}, 2},
		{"Single pair", []string{"key", "value"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attributes := attributesFromTags(tt.tags)
			require.Len(t, attributes, tt.expected)

			for i := range attributes {
				assert.Equal(t, tt.tags[i*2], string(attributes[i].Key))
				assert.Equal(t, tt.tags[i*2+1], attributes[i].Value.AsString())
			}
		})
	}
}

func TestMetricsInterface(t *testing.T) {
	var _ MetricsClient = (*OTelMetrics)(nil)
	var _ MetricsClient = NoopMetrics{}
}

func TestIncrement(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.Increment(ctx, "locker.client.attempts", 2, "operation", "acquire")
	m.Increment(ctx, "locker.client.attempts", 1, "operation", "acquire")

	metrics := collect(t, reader)
	got, ok := metrics["locker.client.attempts"]
	require.True(t, ok)

	sum, ok := got.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestRecordLatency(t *testing.T) {
	m, reader := newTestMetrics(t)

	err := m.RecordLatency(context.Background(), 100*time.Millisecond, "operation", "renew", "result", "ok")
	require.NoError(t, err)

	metrics := collect(t, reader)
	got, ok := metrics[LatencyMetric]
	require.True(t, ok)

	hist, ok := got.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.1, hist.DataPoints[0].Sum, 0.0001)
}

func TestNewMetricsClient_GlobalProvider(t *testing.T) {
	metrics, err := NewMetricsClient(Config{ServiceName: "test-service"}, NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.NotPanics(t, func() {
		metrics.Increment(context.Background(), "noop.counter", 1)
	})
}

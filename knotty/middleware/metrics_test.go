package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/on-the-ground/knotty_go/knotty/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func statusOf(attrs attribute.Set) string {
	v, _ := attrs.Value("status")
	return v.AsString()
}

func TestMetrics_RecordsDurationAndExecutions(t *testing.T) {
	reader, mp := setupTestMeter()
	m := middleware.MetricsWithMeter(mp.Meter("test"))

	_ = m(context.Background(), newTestExecution(), func(context.Context) error { return nil })

	rm := collectMetrics(t, reader)

	duration := findMetric(rm, "knotty.intent.duration")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	executions := findMetric(rm, "knotty.intent.executions")
	require.NotNil(t, executions)
	sum, ok := executions.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	assert.Equal(t, "ok", statusOf(sum.DataPoints[0].Attributes))

	store, _ := sum.DataPoints[0].Attributes.Value("store")
	assert.Equal(t, "Counter", store.AsString())
}

func TestMetrics_StatusByOutcome(t *testing.T) {
	reader, mp := setupTestMeter()
	m := middleware.MetricsWithMeter(mp.Meter("test"))
	exec := newTestExecution()

	_ = m(context.Background(), exec, func(context.Context) error { return errors.New("boom") })
	_ = m(context.Background(), exec, func(context.Context) error { return context.Canceled })

	executions := findMetric(collectMetrics(t, reader), "knotty.intent.executions")
	require.NotNil(t, executions)
	sum, ok := executions.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var statuses []string
	for _, dp := range sum.DataPoints {
		statuses = append(statuses, statusOf(dp.Attributes))
	}
	assert.ElementsMatch(t, []string{"error", "cancelled"}, statuses)
}

func TestMetrics_DefaultNoopSafe(t *testing.T) {
	called := false
	err := middleware.Metrics()(context.Background(), newTestExecution(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

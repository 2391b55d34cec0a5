package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-execution instruments on the global MeterProvider.
//
// Instruments, each with attributes store, intent, strategy and status
// ("ok", "error" or "cancelled"):
//   - knotty.intent.duration (Float64Histogram, seconds)
//   - knotty.intent.executions (Int64Counter)
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(instrumentationName))
}

// MetricsWithMeter is Metrics with an explicit meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The API hands back noop instruments alongside any error.
	duration, _ := meter.Float64Histogram(
		"knotty.intent.duration",
		metric.WithDescription("Duration of intent execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"knotty.intent.executions",
		metric.WithDescription("Total number of intent executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, exec *Execution, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("store", exec.Store),
			attribute.String("intent", exec.IntentType),
			attribute.String("strategy", exec.Strategy),
			attribute.String("status", status(err)),
		)
		// ctx may already be cancelled; recording must not depend on it.
		recordCtx := context.WithoutCancel(ctx)
		duration.Record(recordCtx, elapsed, attrs)
		executions.Add(recordCtx, 1, attrs)

		return err
	}
}

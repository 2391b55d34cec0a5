package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/on-the-ground/knotty_go"

// Tracing wraps every execution in a span from the global TracerProvider.
// Without a configured provider the noop tracer makes this a pass-through.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(instrumentationName))
}

// TracingWithTracer is Tracing with an explicit tracer.
//
// Span attributes: knotty.execution.id, knotty.store, knotty.intent, knotty.strategy.
// A failed execution sets codes.Error; a cancelled one adds a "cancelled" event
// and leaves the status unset.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, exec *Execution, next Handler) error {
		ctx, span := tracer.Start(ctx, "knotty.intent.execute",
			trace.WithAttributes(
				attribute.String("knotty.execution.id", exec.ID),
				attribute.String("knotty.store", exec.Store),
				attribute.String("knotty.intent", exec.IntentType),
				attribute.String("knotty.strategy", exec.Strategy),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		switch status(err) {
		case "ok":
			span.SetStatus(codes.Ok, "")
		case "cancelled":
			span.AddEvent("cancelled")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

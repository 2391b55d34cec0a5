package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/on-the-ground/knotty_go/knotty/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func TestTracing_CreatesSpanWithAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	exec := newTestExecution()

	err := middleware.TracingWithTracer(tracer)(context.Background(), exec, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "knotty.intent.execute", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := make(map[string]string)
	for _, a := range spans[0].Attributes() {
		if a.Value.Type() == attribute.STRING {
			attrs[string(a.Key)] = a.Value.AsString()
		}
	}
	assert.Equal(t, map[string]string{
		"knotty.execution.id": exec.ID,
		"knotty.store":        "Counter",
		"knotty.intent":       "Increment",
		"knotty.strategy":     "Queue",
	}, attrs)
}

func TestTracing_ErrorSetsErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	handlerErr := errors.New("handler failed")

	err := middleware.TracingWithTracer(tracer)(context.Background(), newTestExecution(), func(context.Context) error {
		return handlerErr
	})
	require.ErrorIs(t, err, handlerErr)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "handler failed", spans[0].Status().Description)
	assert.True(t, hasEvent(spans[0], "exception"))
}

func TestTracing_CancellationIsNotAnError(t *testing.T) {
	sr, tracer := setupTestTracer()

	_ = middleware.TracingWithTracer(tracer)(context.Background(), newTestExecution(), func(context.Context) error {
		return context.Canceled
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.True(t, hasEvent(spans[0], "cancelled"))
}

func TestTracing_PropagatesSpanContext(t *testing.T) {
	sr, tracer := setupTestTracer()

	var inner trace.SpanContext
	_ = middleware.TracingWithTracer(tracer)(context.Background(), newTestExecution(), func(ctx context.Context) error {
		inner = trace.SpanFromContext(ctx).SpanContext()
		return nil
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.True(t, inner.IsValid())
	assert.Equal(t, spans[0].SpanContext().TraceID(), inner.TraceID())
}

func TestTracing_DefaultNoopSafe(t *testing.T) {
	called := false
	err := middleware.Tracing()(context.Background(), newTestExecution(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func hasEvent(span sdktrace.ReadOnlySpan, name string) bool {
	for _, ev := range span.Events() {
		if ev.Name == name {
			return true
		}
	}
	return false
}

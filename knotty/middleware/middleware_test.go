package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/knotty_go/knotty/log"
	"github.com/on-the-ground/knotty_go/knotty/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExecution() *middleware.Execution {
	return &middleware.Execution{
		ID:         uuid.NewString(),
		Store:      "Counter",
		Strategy:   "Queue",
		IntentType: "Increment",
		Intent:     struct{ By int }{By: 1},
	}
}

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string
	wrap := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *middleware.Execution, next middleware.Handler) error {
			order = append(order, name+"-before")
			err := next(ctx)
			order = append(order, name+"-after")
			return err
		}
	}

	chain := middleware.Chain(wrap("mw1"), wrap("mw2"))
	err := chain(context.Background(), newTestExecution(), func(context.Context) error {
		order = append(order, "handler")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}, order)
}

func TestChain_EmptyCallsHandler(t *testing.T) {
	called := false
	err := middleware.Chain()(context.Background(), newTestExecution(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestChain_PropagatesError(t *testing.T) {
	want := errors.New("handler error")
	passThrough := func(ctx context.Context, _ *middleware.Execution, next middleware.Handler) error {
		return next(ctx)
	}

	err := middleware.Chain(passThrough)(context.Background(), newTestExecution(), func(context.Context) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}

func TestRecover_ConvertsPanicToError(t *testing.T) {
	logger, logs := log.NewObserved(zap.ErrorLevel)
	m := middleware.Recover(logger)

	err := m(context.Background(), newTestExecution(), func(context.Context) error {
		panic("kaboom")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, 1, logs.FilterMessage("intent handler panicked").Len())
}

func TestLogging_LevelsByOutcome(t *testing.T) {
	logger, logs := log.NewObserved(zap.DebugLevel)
	m := middleware.Logging(logger)
	exec := newTestExecution()

	_ = m(context.Background(), exec, func(context.Context) error { return nil })
	_ = m(context.Background(), exec, func(context.Context) error { return errors.New("nope") })
	_ = m(context.Background(), exec, func(context.Context) error { return context.Canceled })

	assert.Equal(t, 1, logs.FilterMessage("intent completed").Len())
	assert.Equal(t, 1, logs.FilterMessage("intent failed").Len())
	cancelled := logs.FilterMessage("intent cancelled").All()
	require.Len(t, cancelled, 1)
	assert.Equal(t, zap.DebugLevel, cancelled[0].Level)
	assert.Equal(t, "Counter", cancelled[0].ContextMap()["store"])
}

func TestTimeout_SetsDeadline(t *testing.T) {
	m := middleware.Timeout(20*time.Millisecond, nil)

	err := m(context.Background(), newTestExecution(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeout_ZeroIsPassThrough(t *testing.T) {
	m := middleware.Timeout(0, nil)

	err := m(context.Background(), newTestExecution(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.False(t, ok)
		return nil
	})
	assert.NoError(t, err)
}

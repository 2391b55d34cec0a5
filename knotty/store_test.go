package knotty_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/on-the-ground/knotty_go/knotty"
	"github.com/on-the-ground/knotty_go/knotty/bus"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int
	Tags  []int
}

type CounterIntent interface{ isCounterIntent() }

type Increment struct {
	By   int
	Tag  int
	Work time.Duration
}

type Decrement struct{ By int }

type Fail struct{ Msg string }

type Explode struct{}

func (Increment) isCounterIntent() {}
func (Decrement) isCounterIntent() {}
func (Fail) isCounterIntent()      {}
func (Explode) isCounterIntent()   {}

type Milestone struct{ Count int }

type counterStore = knotty.Store[counter, CounterIntent, any]

func handleCounter(ctx context.Context, s *counterStore, intent CounterIntent) error {
	switch it := intent.(type) {
	case Increment:
		if it.Work > 0 {
			select {
			case <-time.After(it.Work):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		next := s.Update(func(c counter) counter {
			c.Count += it.By
			c.Tags = append(append([]int(nil), c.Tags...), it.Tag)
			return c
		})
		if next.Count != 0 && next.Count%10 == 0 {
			s.Emit(Milestone{Count: next.Count})
		}
	case Decrement:
		s.Update(func(c counter) counter {
			c.Count -= it.By
			return c
		})
	case Fail:
		return errors.New(it.Msg)
	case Explode:
		panic("exploded")
	}
	return nil
}

func newCounterStore(t *testing.T, cfg knotty.Config[CounterIntent]) *counterStore {
	t.Helper()
	if cfg.Bus == nil {
		cfg.Bus = bus.New()
	}
	s, err := knotty.New(counter{}, handleCounter, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func strategyFor(byType map[string]knotty.Strategy) func(CounterIntent) knotty.Strategy {
	return func(intent CounterIntent) knotty.Strategy {
		return byType[knotty.IntentName(intent)]
	}
}

func wait(t *testing.T, ch <-chan knotty.Result) knotty.Result {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "result channel closed without a result")
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for result")
		return knotty.Result{}
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// collector gathers values delivered from other goroutines.
type collector[T any] struct {
	mu     sync.Mutex
	values []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

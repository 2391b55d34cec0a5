package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Scope owns a dispatcher and the goroutines behind it.
// Perform never blocks past Close: once the scope is closed, payloads are dropped.
type Scope[T any] struct {
	ID         string
	dispatcher Dispatcher[T]
	ctx        context.Context
	cancel     context.CancelFunc
	done       <-chan struct{}
	teardown   func()
	closeOnce  sync.Once
}

// NewFireAndForgetScope runs handleFn for every performed payload on a single worker.
func NewFireAndForgetScope[T any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, T),
	teardown func(),
) *Scope[T] {
	ctx, cancel := context.WithCancel(ctx)
	dispatcher, done := NewSingleQueue(ctx, normalize(bufferSize), handleFn)
	return newScope(ctx, cancel, dispatcher, done, teardown)
}

// NewPartitionedScope runs handleFn on numWorkers workers, routing payloads by PartitionKey.
func NewPartitionedScope[T Partitionable](
	ctx context.Context,
	bufferSize, numWorkers int,
	handleFn func(context.Context, T),
	teardown func(),
) *Scope[T] {
	ctx, cancel := context.WithCancel(ctx)
	dispatcher, done := NewPartitionedQueue(ctx, numWorkers, normalize(bufferSize), handleFn)
	return newScope(ctx, cancel, dispatcher, done, teardown)
}

func newScope[T any](
	ctx context.Context,
	cancel context.CancelFunc,
	dispatcher Dispatcher[T],
	done <-chan struct{},
	teardown func(),
) *Scope[T] {
	if teardown == nil {
		teardown = func() {}
	}
	return &Scope[T]{
		ID:         uuid.New().String(),
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
		done:       done,
		teardown:   teardown,
	}
}

// Perform hands payload to a worker. It reports false when the payload was dropped
// because either the caller's context or the scope itself is done.
func (s *Scope[T]) Perform(ctx context.Context, payload T) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.ctx.Done():
		return false
	case s.dispatcher.GetChannelOf(payload) <- payload:
		return true
	}
}

// Close stops the workers after they drain buffered payloads, then runs teardown.
// Calling Close more than once is a no-op.
func (s *Scope[T]) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.teardown()
	})
}

func normalize(bufferSize int) int {
	if bufferSize <= 0 {
		return 1
	}
	return bufferSize
}

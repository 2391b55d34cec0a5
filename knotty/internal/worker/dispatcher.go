package worker

import (
	"context"
	"sync"
)

// Partitionable routes a message to a worker by key.
// Messages sharing a key are handled by the same goroutine, in order.
type Partitionable interface {
	PartitionKey() string
}

// --- common interface ---

type Dispatcher[T any] interface {
	GetChannelOf(msg T) chan T
}

// --- single queue ---

type singleQueue[T any] struct {
	effectCh chan T
}

func (q singleQueue[T]) GetChannelOf(_ T) chan T {
	return q.effectCh
}

// NewSingleQueue starts one worker goroutine draining a buffered channel into handleFn.
// The worker exits when ctx is done; done is closed once it has returned.
func NewSingleQueue[T any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, T),
) (Dispatcher[T], <-chan struct{}) {
	effCh := make(chan T, bufferSize)
	ready := make(chan struct{})
	done := make(chan struct{})

	go func(ch chan T) {
		defer close(done)
		close(ready)
		for {
			select {
			case msg := <-ch:
				handleFn(ctx, msg)
			case <-ctx.Done():
				drain(ctx, ch, handleFn)
				return
			}
		}
	}(effCh)

	<-ready

	return singleQueue[T]{effectCh: effCh}, done
}

// --- partitioned queue ---

type partitionedQueue[T Partitionable] struct {
	effectChs []chan T
}

func (pq partitionedQueue[T]) GetChannelOf(msg T) chan T {
	idx := getIndexByHash(msg, len(pq.effectChs))
	return pq.effectChs[idx]
}

// NewPartitionedQueue starts numWorkers goroutines, each owning one buffered channel.
// done is closed once every worker has returned.
func NewPartitionedQueue[T Partitionable](
	ctx context.Context,
	numWorkers, bufferSize int,
	handleFn func(context.Context, T),
) (Dispatcher[T], <-chan struct{}) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	channels := make([]chan T, numWorkers)
	ready := sync.WaitGroup{}
	exited := sync.WaitGroup{}
	for i := 0; i < numWorkers; i++ {
		ready.Add(1)
		exited.Add(1)
		ch := make(chan T, bufferSize)
		go func(ch chan T) {
			defer exited.Done()
			ready.Done()
			for {
				select {
				case msg := <-ch:
					handleFn(ctx, msg)
				case <-ctx.Done():
					drain(ctx, ch, handleFn)
					return
				}
			}
		}(ch)
		channels[i] = ch
	}
	ready.Wait()

	done := make(chan struct{})
	go func() {
		exited.Wait()
		close(done)
	}()
	return partitionedQueue[T]{effectChs: channels}, done
}

// drain hands whatever is already buffered to handleFn before a worker exits.
func drain[T any](ctx context.Context, ch chan T, handleFn func(context.Context, T)) {
	for {
		select {
		case msg := <-ch:
			handleFn(ctx, msg)
		default:
			return
		}
	}
}

package effect

import (
	"context"
	"sync"
	"sync/atomic"
)

// ChannelSink is a Disposable that forwards stream values into a buffered channel.
// A value that finds the buffer full is dropped and counted, never queued.
type ChannelSink[E any] struct {
	ch      chan E
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
	sub     Disposable
	stop    chan struct{}
}

// Sink subscribes a channel of the given capacity to s. The channel is closed when the
// stream completes, when the sink is disposed, or when ctx is done, whichever comes first.
func (s *Stream[E]) Sink(ctx context.Context, buffer int) *ChannelSink[E] {
	if buffer <= 0 {
		buffer = 1
	}
	sink := &ChannelSink[E]{
		ch:   make(chan E, buffer),
		stop: make(chan struct{}),
	}
	sink.sub = s.Subscribe(Funcs[E]{
		Next:      sink.offer,
		Completed: sink.close,
	})

	go func() {
		select {
		case <-ctx.Done():
			sink.Dispose()
		case <-sink.stop:
		}
	}()
	return sink
}

// C returns the receive side of the sink.
func (c *ChannelSink[E]) C() <-chan E {
	return c.ch
}

// Dropped returns how many values were discarded because the buffer was full.
func (c *ChannelSink[E]) Dropped() int64 {
	return c.dropped.Load()
}

func (c *ChannelSink[E]) Dispose() {
	if c.sub != nil {
		c.sub.Dispose()
	}
	c.close()
}

func (c *ChannelSink[E]) offer(value E) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- value:
	default:
		c.dropped.Add(1)
	}
}

func (c *ChannelSink[E]) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
	close(c.stop)
}

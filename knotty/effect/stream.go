// Package effect provides the multicast stream a Store uses to broadcast one-shot effects.
//
// A Stream keeps no history and applies no backpressure: Emit delivers synchronously
// to a snapshot of the observers subscribed at call time, in subscription order.
// Complete delivers a completion signal once and permanently empties the observer set.
package effect

import (
	"errors"
	"sync"
)

// ErrStreamCompleted is returned by TryEmit once the stream has been completed.
var ErrStreamCompleted = errors.New("effect stream completed")

// Observer receives values and the completion signal of a Stream.
type Observer[E any] interface {
	OnNext(E)
	OnCompleted()
}

// Disposable removes exactly one subscription. Dispose is idempotent.
type Disposable interface {
	Dispose()
}

type Stream[E any] struct {
	mu        sync.Mutex
	observers []*registration[E]
	completed bool
}

type registration[E any] struct {
	observer Observer[E]
}

// NewStream returns an empty, live stream.
func NewStream[E any]() *Stream[E] {
	return &Stream[E]{}
}

// Subscribe registers observer. Subscribing to a completed stream delivers
// OnCompleted immediately and returns a Disposable that does nothing.
func (s *Stream[E]) Subscribe(observer Observer[E]) Disposable {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		observer.OnCompleted()
		return noopDisposable{}
	}
	reg := &registration[E]{observer: observer}
	s.observers = append(s.observers, reg)
	s.mu.Unlock()

	return &unsubscriber[E]{stream: s, reg: reg}
}

// SubscribeFunc registers fn for every emitted value and ignores completion.
func (s *Stream[E]) SubscribeFunc(fn func(E)) Disposable {
	return s.Subscribe(Funcs[E]{Next: fn})
}

// Emit delivers value to a snapshot of the current observers.
func (s *Stream[E]) Emit(value E) {
	_ = s.TryEmit(value)
}

// TryEmit is Emit that reports whether the stream had already been completed.
func (s *Stream[E]) TryEmit(value E) error {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return ErrStreamCompleted
	}
	snapshot := s.snapshot()
	s.mu.Unlock()

	for _, reg := range snapshot {
		reg.observer.OnNext(value)
	}
	return nil
}

// Complete signals completion to the current observers and clears them.
// Later calls are no-ops.
func (s *Stream[E]) Complete() {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	snapshot := s.snapshot()
	s.observers = nil
	s.mu.Unlock()

	for _, reg := range snapshot {
		reg.observer.OnCompleted()
	}
}

// Completed reports whether Complete has been called.
func (s *Stream[E]) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Len returns the number of live observers.
func (s *Stream[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func (s *Stream[E]) snapshot() []*registration[E] {
	snapshot := make([]*registration[E], len(s.observers))
	copy(snapshot, s.observers)
	return snapshot
}

func (s *Stream[E]) remove(reg *registration[E]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.observers {
		if r == reg {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

type unsubscriber[E any] struct {
	stream *Stream[E]
	reg    *registration[E]
	once   sync.Once
}

func (u *unsubscriber[E]) Dispose() {
	u.once.Do(func() {
		u.stream.remove(u.reg)
	})
}

type noopDisposable struct{}

func (noopDisposable) Dispose() {}

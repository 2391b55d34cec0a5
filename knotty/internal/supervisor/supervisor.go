package supervisor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Supervisor manages the lifecycle of goroutines spawned on behalf of one owner.
//   - Every child runs under the supervisor's context and is tracked by a WaitGroup.
//   - A panicking child is recovered and logged; onPanic receives the recovered value.
//   - Shutdown cancels the context and joins every child.
type Supervisor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *zap.Logger
	onPanic func(any)

	mu     sync.Mutex
	closed bool
}

// New returns a supervisor whose children observe a context derived from parent.
func New(parent context.Context, logger *zap.Logger, onPanic func(any)) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onPanic == nil {
		onPanic = func(any) {}
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		onPanic: onPanic,
	}
}

// Context is cancelled when Shutdown starts.
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Go starts fn in its own goroutine. It reports false, without running fn,
// once Shutdown has been called.
func (s *Supervisor) Go(fn func(context.Context)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	ready := make(chan struct{})
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in supervised routine", zap.String("panic", fmt.Sprint(r)))
				s.onPanic(r)
			}
		}()
		close(ready)
		fn(s.ctx)
	}()
	<-ready
	return true
}

// Shutdown cancels every child and blocks until all of them have returned.
// Calling Shutdown more than once is a no-op beyond waiting again.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.logger.Debug("waiting for all routines to finish")
	s.wg.Wait()
	s.logger.Debug("all routines finished")
}

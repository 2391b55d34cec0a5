package knotty

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/knotty_go/knotty/debugger"
	"github.com/on-the-ground/knotty_go/knotty/log"
	"github.com/on-the-ground/knotty_go/knotty/middleware"
	"github.com/on-the-ground/knotty_go/knotty/state"
	"go.uber.org/zap"
)

type queued[I any] struct {
	intent  I
	resolve func(Result)
}

// running is the current CancelPrevious execution.
type running struct {
	id     string
	cancel context.CancelFunc
}

// Dispatch schedules intent and returns immediately.
func (s *Store[S, I, E]) Dispatch(intent I) {
	s.schedule(intent, func(Result) {})
}

// Submit schedules intent and returns a channel that receives its Result once
// and is then closed.
func (s *Store[S, I, E]) Submit(intent I) <-chan Result {
	out := make(chan Result, 1)
	s.schedule(intent, func(r Result) {
		out <- r
		close(out)
	})
	return out
}

// DispatchAndWait schedules intent and waits for its outcome. The error is
// the handler fault for Failed and ErrStoreClosed for Rejected. If ctx is done
// first it returns Pending and ctx.Err(); the execution itself carries on.
func (s *Store[S, I, E]) DispatchAndWait(ctx context.Context, intent I) (Outcome, error) {
	select {
	case r := <-s.Submit(intent):
		return r.Outcome, r.Err
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

func (s *Store[S, I, E]) schedule(intent I, resolve func(Result)) {
	if isNil(intent) {
		resolve(Result{Outcome: Rejected, Err: ErrNilIntent})
		return
	}

	strategy := s.cfg.StrategyFor(intent)
	if !strategy.Valid() {
		s.logger.Warn("unknown strategy, falling back to Block",
			zap.String("intent", IntentName(intent)),
			zap.Stringer("strategy", strategy),
		)
		strategy = Block
	}

	switch strategy {
	case Block:
		s.block(intent, resolve)
	case Queue:
		s.enqueue(intent, resolve)
	case Debounce:
		s.debounced(intent, resolve)
	case CancelPrevious:
		s.cancelPrevious(intent, resolve)
	case Parallel:
		s.parallel(intent, resolve)
	}
}

func (s *Store[S, I, E]) block(intent I, resolve func(Result)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		resolve(rejected())
		return
	}
	if s.inFlight > 0 {
		s.mu.Unlock()
		s.logger.Debug("intent dropped while busy",
			zap.String("intent", IntentName(intent)),
			zap.Stringer("strategy", Block),
		)
		s.record(intent, Dropped, time.Now())
		resolve(Result{Outcome: Dropped})
		return
	}
	started := s.reserveLocked()
	s.mu.Unlock()

	s.launch(started, resolve, func() Result {
		return s.execute(s.ctx, intent, Block)
	})
}

func (s *Store[S, I, E]) enqueue(intent I, resolve func(Result)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		resolve(rejected())
		return
	}
	s.queue = append(s.queue, queued[I]{intent: intent, resolve: resolve})
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	if !s.sup.Go(func(context.Context) { s.drain() }) {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}
}

// drain runs queued intents one at a time until the queue is empty. Whoever
// finds the queue idle starts it; at most one drain runs per Store.
func (s *Store[S, I, E]) drain() {
	for {
		s.mu.Lock()
		if s.closed || len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = queued[I]{}
		s.queue = s.queue[1:]
		started := s.reserveLocked()
		s.mu.Unlock()

		if started {
			s.notify(Notification{Property: PropIsLoading})
		}
		next.resolve(s.execute(s.ctx, next.intent, Queue))
	}
}

// debounced lets only the latest arrival of a concrete intent type run. Every
// arrival bumps the type's generation; a waiter whose generation is stale
// when its delay elapses is superseded.
func (s *Store[S, I, E]) debounced(intent I, resolve func(Result)) {
	key := reflect.TypeOf(any(intent))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		resolve(rejected())
		return
	}
	s.debounce[key]++
	generation := s.debounce[key]
	s.mu.Unlock()

	delay := s.cfg.DelayFor(intent)
	if delay < 0 {
		delay = 0
	}

	ok := s.sup.Go(func(ctx context.Context) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			resolve(rejected())
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			resolve(rejected())
			return
		}
		if s.debounce[key] != generation {
			s.mu.Unlock()
			s.logger.Debug("intent superseded",
				zap.String("intent", IntentName(intent)),
				zap.Stringer("strategy", Debounce),
			)
			s.record(intent, Superseded, time.Now())
			resolve(Result{Outcome: Superseded})
			return
		}
		started := s.reserveLocked()
		s.mu.Unlock()

		if started {
			s.notify(Notification{Property: PropIsLoading})
		}
		resolve(s.execute(s.ctx, intent, Debounce))
	})
	if !ok {
		resolve(rejected())
	}
}

// cancelPrevious signals the current execution, if any, and starts intent
// without waiting for the previous one to unwind.
func (s *Store[S, I, E]) cancelPrevious(intent I, resolve func(Result)) {
	ctx, cancel := context.WithCancel(s.ctx)
	run := &running{id: uuid.NewString(), cancel: cancel}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		resolve(rejected())
		return
	}
	if s.current != nil {
		s.logger.Debug("cancelling previous execution",
			zap.String("execution", s.current.id),
			zap.String("intent", IntentName(intent)),
		)
		s.current.cancel()
	}
	s.current = run
	started := s.reserveLocked()
	s.mu.Unlock()

	s.launch(started, resolve, func() Result {
		defer func() {
			cancel()
			s.mu.Lock()
			if s.current == run {
				s.current = nil
			}
			s.mu.Unlock()
		}()
		return s.executeAs(ctx, run.id, intent, CancelPrevious)
	}, cancel)
}

func (s *Store[S, I, E]) parallel(intent I, resolve func(Result)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		resolve(rejected())
		return
	}
	started := s.reserveLocked()
	s.mu.Unlock()

	s.launch(started, resolve, func() Result {
		return s.execute(s.ctx, intent, Parallel)
	})
}

// launch runs an execution that already holds an in-flight slot on a
// supervised goroutine. If the Store is shutting down, the slot is returned
// and the intent rejected.
func (s *Store[S, I, E]) launch(started bool, resolve func(Result), run func() Result, onReject ...func()) {
	if started {
		s.notify(Notification{Property: PropIsLoading})
	}
	ok := s.sup.Go(func(context.Context) {
		resolve(run())
	})
	if ok {
		return
	}
	for _, fn := range onReject {
		fn()
	}
	s.release()
	resolve(rejected())
}

// reserveLocked takes an in-flight slot and reports whether the Store just
// started loading. Callers must hold s.mu.
func (s *Store[S, I, E]) reserveLocked() bool {
	s.inFlight++
	return s.inFlight == 1
}

func (s *Store[S, I, E]) release() {
	s.mu.Lock()
	s.inFlight--
	stopped := s.inFlight == 0
	s.mu.Unlock()

	if stopped {
		s.notify(Notification{Property: PropIsLoading})
	}
}

func (s *Store[S, I, E]) execute(ctx context.Context, intent I, strategy Strategy) Result {
	return s.executeAs(ctx, uuid.NewString(), intent, strategy)
}

// executeAs is the uniform execution wrapper. The caller has already reserved
// the in-flight slot; executeAs always returns it.
func (s *Store[S, I, E]) executeAs(ctx context.Context, id string, intent I, strategy Strategy) (result Result) {
	start := time.Now()
	defer func() {
		s.release()
		s.record(intent, result.Outcome, start)
	}()

	s.ClearErrors()

	exec := &middleware.Execution{
		ID:         id,
		Store:      s.name,
		Strategy:   strategy.String(),
		IntentType: IntentName(intent),
		Intent:     intent,
	}
	err := s.chain(ctx, exec, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			}
		}()
		return s.handle(ctx, s, intent)
	})

	fields := []zap.Field{
		zap.String("intent", exec.IntentType),
		zap.String("strategy", exec.Strategy),
		zap.String("execution", id),
	}
	switch {
	case err == nil:
		return Result{Outcome: Completed, ExecutionID: id}
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		log.Eff(ctx, log.LogDebug, "intent cancelled", map[string]interface{}{
			"intent":    exec.IntentType,
			"execution": id,
		})
		return Result{Outcome: Cancelled, ExecutionID: id}
	default:
		s.logger.Error("intent failed", append(fields, zap.Error(err))...)
		s.AddError(StoreScope, err)
		s.onError(intent, err)
		return Result{Outcome: Failed, Err: err, ExecutionID: id}
	}
}

func (s *Store[S, I, E]) onError(intent I, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in error callback", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	s.cfg.OnError(intent, err)
}

func (s *Store[S, I, E]) record(intent I, outcome Outcome, start time.Time) {
	if s.cfg.Recorder == nil {
		return
	}
	span := state.NewTimeSpan(start, time.Now())
	s.cfg.Recorder.Record(debugger.IntentEntry(s.name, IntentName(intent), intent, outcome.String(), span))
}

func rejected() Result {
	return Result{Outcome: Rejected, Err: ErrStoreClosed}
}

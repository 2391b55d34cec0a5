package knotty

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"github.com/on-the-ground/knotty_go/knotty/bus"
	"github.com/on-the-ground/knotty_go/knotty/debugger"
	"github.com/on-the-ground/knotty_go/knotty/effect"
	"github.com/on-the-ground/knotty_go/knotty/internal/supervisor"
	"github.com/on-the-ground/knotty_go/knotty/log"
	"github.com/on-the-ground/knotty_go/knotty/middleware"
	"github.com/on-the-ground/knotty_go/knotty/state"
	"go.uber.org/zap"
)

// HandleFunc executes one intent. ctx is cancelled when a CancelPrevious
// dispatch supersedes this execution or when the Store is closed.
// A returned error is recorded as a handler fault, unless it wraps
// context.Canceled after ctx was cancelled.
type HandleFunc[S, I, E any] func(ctx context.Context, s *Store[S, I, E], intent I) error

// Store owns a state snapshot of type S, handles intents of type I and emits
// effects of type E.
type Store[S, I, E any] struct {
	name   string
	cfg    Config[I]
	handle HandleFunc[S, I, E]
	logger *zap.Logger
	chain  middleware.Middleware

	state         *state.Cell[S]
	effects       *effect.Stream[E]
	notifications *effect.Stream[Notification]

	sup       *supervisor.Supervisor
	ctx       context.Context
	res       *resources
	cleanup   runtime.Cleanup
	closeOnce sync.Once

	mu       sync.Mutex
	closed   bool
	inFlight int
	queue    []queued[I]
	draining bool
	debounce map[reflect.Type]uint64
	current  *running
	errs     errorRecord
}

// resources are released by Close, or by a runtime cleanup when the Store is
// collected without being closed. Nothing in here may reference the Store.
type resources struct {
	once        sync.Once
	sub         *bus.Subscription
	sup         *supervisor.Supervisor
	teardownLog func() context.Context
}

func (r *resources) release() {
	r.once.Do(func() {
		if r.sub != nil {
			r.sub.Dispose()
		}
		r.sup.Shutdown()
		r.teardownLog()
	})
}

// New builds a Store holding initial. A nil initial state or handler is a
// construction fault.
func New[S, I, E any](initial S, handle HandleFunc[S, I, E], cfg Config[I]) (*Store[S, I, E], error) {
	if isNil(initial) {
		return nil, fmt.Errorf("%w: nil %T", ErrInvalidInitialState, initial)
	}
	if handle == nil {
		return nil, ErrNilHandler
	}
	cfg = cfg.normalized(typeName[S]())

	logger := cfg.Logger.With(zap.String("store", cfg.Name))
	sup := supervisor.New(context.Background(), logger, nil)
	ctx, teardownLog := log.WithZapEffectHandler(sup.Context(), cfg.LogBufferSize, logger)

	s := &Store[S, I, E]{
		name:          cfg.Name,
		cfg:           cfg,
		handle:        handle,
		logger:        logger,
		chain:         middleware.Chain(cfg.Middleware...),
		state:         state.NewCell(initial),
		effects:       effect.NewStream[E](),
		notifications: effect.NewStream[Notification](),
		sup:           sup,
		ctx:           ctx,
		res:           &resources{sup: sup, teardownLog: teardownLog},
		debounce:      make(map[reflect.Type]uint64),
	}
	s.state.Changes().SubscribeFunc(s.onStateChange)

	if !cfg.DisableBus {
		sub, err := bus.SubscribeFamily(cfg.Bus, s, cfg.Family, receiveFromBus[S, I, E])
		if err != nil {
			s.res.release()
			return nil, fmt.Errorf("knotty: subscribe %s to bus: %w", cfg.Name, err)
		}
		s.res.sub = sub
	}
	s.cleanup = runtime.AddCleanup(s, (*resources).release, s.res)

	logger.Debug("store created", zap.String("family", cfg.Family.String()))
	return s, nil
}

// MustNew is New that panics on a construction fault.
func MustNew[S, I, E any](initial S, handle HandleFunc[S, I, E], cfg Config[I]) *Store[S, I, E] {
	s, err := New(initial, handle, cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func receiveFromBus[S, I, E any](s *Store[S, I, E], msg any) {
	if intent, ok := msg.(I); ok {
		s.Dispatch(intent)
	}
}

func (s *Store[S, I, E]) Name() string {
	return s.name
}

// State returns the current snapshot.
func (s *Store[S, I, E]) State() S {
	return s.state.Load()
}

// Update atomically replaces the snapshot with fn applied to it. Concurrent
// updates, including those of Parallel executions, are serialized.
// fn must not call back into the Store.
func (s *Store[S, I, E]) Update(fn func(S) S) S {
	return s.state.Update(fn)
}

func (s *Store[S, I, E]) SetState(next S) {
	s.state.Store(next)
}

// StateChanges streams every replacement of the snapshot.
func (s *Store[S, I, E]) StateChanges() *effect.Stream[state.Change[S]] {
	return s.state.Changes()
}

// Emit delivers effect to the current effect observers.
func (s *Store[S, I, E]) Emit(e E) {
	s.effects.Emit(e)
}

func (s *Store[S, I, E]) Effects() *effect.Stream[E] {
	return s.effects
}

// Notifications streams property changes: state, loading and errors.
func (s *Store[S, I, E]) Notifications() *effect.Stream[Notification] {
	return s.notifications
}

// IsLoading reports whether at least one execution is in flight.
func (s *Store[S, I, E]) IsLoading() bool {
	return s.InFlight() > 0
}

func (s *Store[S, I, E]) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Store[S, I, E]) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.any()
}

// Errors returns the messages recorded under scope by the latest execution.
func (s *Store[S, I, E]) Errors(scope string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.messages(scope)
}

// ErrorScopes returns the scopes holding errors, in the order they were added.
func (s *Store[S, I, E]) ErrorScopes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.scopeNames()
}

// Err combines every recorded error, or returns nil.
func (s *Store[S, I, E]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.combined()
}

// AddError records err under scope. Handlers use it for validation errors
// that should not fail the execution.
func (s *Store[S, I, E]) AddError(scope string, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	hadErrors := s.errs.any()
	s.errs.add(scope, err)
	s.mu.Unlock()

	s.notify(Notification{Property: PropErrors, Scope: scope})
	if !hadErrors {
		s.notify(Notification{Property: PropHasErrors})
	}
}

// ClearErrors empties the error record.
func (s *Store[S, I, E]) ClearErrors() {
	s.mu.Lock()
	cleared := s.errs.clear()
	s.mu.Unlock()

	for _, scope := range cleared {
		s.notify(Notification{Property: PropErrors, Scope: scope})
	}
	if len(cleared) > 0 {
		s.notify(Notification{Property: PropHasErrors})
	}
}

// Close detaches the Store from the bus, cancels in-flight executions and
// pending debounces, rejects queued intents, completes every stream and
// waits for the Store's goroutines. Calling Close more than once is a no-op.
// Close must not be called from inside a handler.
func (s *Store[S, I, E]) Close() {
	s.closeOnce.Do(func() {
		if s.res.sub != nil {
			s.res.sub.Dispose()
		}

		s.mu.Lock()
		s.closed = true
		rejected := s.queue
		s.queue = nil
		if s.current != nil {
			s.current.cancel()
		}
		s.mu.Unlock()

		for _, q := range rejected {
			q.resolve(Result{Outcome: Rejected, Err: ErrStoreClosed})
		}

		s.cleanup.Stop()
		s.res.release()

		s.effects.Complete()
		s.notifications.Complete()
		s.state.Close()
		s.logger.Debug("store closed", zap.Int("rejected", len(rejected)))
	})
}

func (s *Store[S, I, E]) onStateChange(change state.Change[S]) {
	s.notify(Notification{Property: PropState})
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.Record(debugger.StateEntry(s.name, change.Old, change.New))
	}
}

func (s *Store[S, I, E]) notify(n Notification) {
	s.notifications.Emit(n)
}

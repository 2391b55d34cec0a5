// Package debugger records what Stores do so a session can be inspected or
// exported after the fact. Recording is off until Enable is called.
package debugger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/knotty_go/knotty/internal/worker"
	"go.uber.org/zap"
)

type Options struct {
	// Workers is the number of partitions entries are spread over. Defaults to 1.
	Workers int
	// BufferSize is the per-partition channel capacity. Defaults to 64.
	BufferSize int
	// Limit caps the number of kept entries; the oldest are discarded first.
	// Zero keeps everything.
	Limit   int
	Enabled bool
	Logger  *zap.Logger
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 64
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Recorder collects entries asynchronously. Entries of the same store keep
// their recording order.
type Recorder struct {
	opts    Options
	enabled atomic.Bool
	scope   *worker.Scope[Entry]

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	closed  bool
	entries []Entry
}

func NewRecorder(opts Options) *Recorder {
	opts = opts.normalized()
	r := &Recorder{opts: opts}
	r.idle = sync.NewCond(&r.mu)
	r.enabled.Store(opts.Enabled)
	r.scope = worker.NewPartitionedScope(
		context.Background(),
		opts.BufferSize,
		opts.Workers,
		func(_ context.Context, e Entry) { r.append(e) },
		nil,
	)
	return r
}

var defaultRecorder = sync.OnceValue(func() *Recorder { return NewRecorder(Options{}) })

// Default returns the process-wide recorder. It starts disabled.
func Default() *Recorder {
	return defaultRecorder()
}

func (r *Recorder) Enable()       { r.enabled.Store(true) }
func (r *Recorder) Disable()      { r.enabled.Store(false) }
func (r *Recorder) Enabled() bool { return r.enabled.Load() }

// Record queues e while the recorder is enabled. ID and Timestamp are filled in
// when zero. It reports whether the entry was accepted.
func (r *Recorder) Record(e Entry) bool {
	if !r.Enabled() {
		return false
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.pending++
	r.mu.Unlock()

	if !r.scope.Perform(context.Background(), e) {
		r.done()
		return false
	}
	return true
}

// Sync blocks until every accepted entry has been stored.
func (r *Recorder) Sync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.pending > 0 {
		r.idle.Wait()
	}
}

// Entries returns a copy of the stored entries in arrival order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Close stores what is already queued and stops the workers. Later entries are dropped.
func (r *Recorder) Close() {
	r.scope.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.pending = 0
	r.idle.Broadcast()
}

func (r *Recorder) append(e Entry) {
	r.opts.Logger.Debug("recorded",
		zap.String("store", e.Store),
		zap.String("kind", string(e.Kind)),
		zap.String("intent", e.IntentType),
	)

	r.mu.Lock()
	r.entries = append(r.entries, e)
	if r.opts.Limit > 0 && len(r.entries) > r.opts.Limit {
		r.entries = append(r.entries[:0:0], r.entries[len(r.entries)-r.opts.Limit:]...)
	}
	r.mu.Unlock()
	r.done()
}

func (r *Recorder) done() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending--
	if r.pending == 0 {
		r.idle.Broadcast()
	}
	r.mu.Unlock()
}

package knotty

import (
	"time"

	"github.com/on-the-ground/knotty_go/knotty/bus"
	"github.com/on-the-ground/knotty_go/knotty/debugger"
	"github.com/on-the-ground/knotty_go/knotty/middleware"
	"go.uber.org/zap"
)

const (
	DefaultStrategy      = Block
	DefaultDebounceDelay = 300 * time.Millisecond
	defaultLogBuffer     = 64
)

// Config customizes a Store. The zero value is usable: every intent is
// handled with Block and the Store listens on the process-wide bus.
type Config[I any] struct {
	// Name identifies the Store in logs, traces and recorder entries.
	// Defaults to the state type name.
	Name string

	StrategyFor func(intent I) Strategy
	DelayFor    func(intent I) time.Duration

	// OnError is called after a handler fault has been recorded.
	OnError func(intent I, err error)

	Logger *zap.Logger

	// Bus the Store subscribes to. Defaults to bus.Default().
	Bus *bus.Bus
	// Family the Store subscribes under. Defaults to the family of I.
	Family     bus.Family
	DisableBus bool

	// Middleware wraps every handler call; the first entry is outermost.
	Middleware []middleware.Middleware

	// Recorder receives intent and state entries while it is enabled.
	Recorder *debugger.Recorder

	// LogBufferSize is the capacity of the log effect handler installed into
	// every handler context.
	LogBufferSize int
}

// WithPolicies resolves strategies and delays from p, keyed by intent type name.
func (c Config[I]) WithPolicies(p Policies) Config[I] {
	c.StrategyFor = func(intent I) Strategy { return p.StrategyFor(intent) }
	c.DelayFor = func(intent I) time.Duration { return p.DelayFor(intent) }
	return c
}

func (c Config[I]) normalized(defaultName string) Config[I] {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.StrategyFor == nil {
		c.StrategyFor = func(I) Strategy { return DefaultStrategy }
	}
	if c.DelayFor == nil {
		c.DelayFor = func(I) time.Duration { return DefaultDebounceDelay }
	}
	if c.OnError == nil {
		c.OnError = func(I, error) {}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Bus == nil {
		c.Bus = bus.Default()
	}
	if c.Family.IsZero() {
		c.Family = bus.FamilyOf[I]()
	}
	if c.LogBufferSize <= 0 {
		c.LogBufferSize = defaultLogBuffer
	}
	return c
}

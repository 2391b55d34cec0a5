// Package middleware wraps every intent execution of a Store with cross-cutting
// behavior.
//
// A Middleware receives the Execution being run and the next Handler in the
// chain. Chain applies them right-to-left, so the first middleware is the
// outermost wrapper:
//
//	// logging → recover → tracing → handle
//	middleware.Chain(middleware.Logging(logger), middleware.Recover(logger), middleware.Tracing())
//
// Middleware must call next unless it intends to short-circuit the execution.
package middleware

import (
	"context"
	"errors"
)

// Handler is the terminal call into the Store's intent handler.
type Handler func(ctx context.Context) error

// Execution describes one scheduled run of an intent.
type Execution struct {
	ID         string
	Store      string
	Strategy   string
	IntentType string
	Intent     any
}

type Middleware func(ctx context.Context, exec *Execution, next Handler) error

// Chain composes mws into a single Middleware. An empty chain calls next directly.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, exec *Execution, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, exec, prev)
			}
		}
		return h(ctx)
	}
}

// status classifies err the way every built-in middleware reports it.
func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

package knotty

import (
	"errors"
	"slices"

	"go.uber.org/multierr"
)

// StoreScope is the error-record scope handler faults are recorded under.
const StoreScope = "Store"

var (
	ErrInvalidInitialState = errors.New("knotty: invalid initial state")
	ErrNilHandler          = errors.New("knotty: nil intent handler")
	ErrNilIntent           = errors.New("knotty: nil intent")
	ErrStoreClosed         = errors.New("knotty: store closed")
	ErrUnknownStrategy     = errors.New("knotty: unknown strategy")
	ErrHandlerPanic        = errors.New("knotty: intent handler panicked")
)

// errorRecord maps a scope to the errors of the latest attempt, keeping the
// order scopes were first added in. It is not safe for concurrent use.
type errorRecord struct {
	order  []string
	scopes map[string][]error
}

func (r *errorRecord) add(scope string, err error) {
	if r.scopes == nil {
		r.scopes = make(map[string][]error)
	}
	if _, ok := r.scopes[scope]; !ok {
		r.order = append(r.order, scope)
	}
	r.scopes[scope] = append(r.scopes[scope], err)
}

// clear empties the record and returns the scopes it held.
func (r *errorRecord) clear() []string {
	cleared := r.order
	r.order = nil
	r.scopes = nil
	return cleared
}

func (r *errorRecord) any() bool {
	return len(r.order) > 0
}

func (r *errorRecord) messages(scope string) []string {
	errs := r.scopes[scope]
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func (r *errorRecord) scopeNames() []string {
	return slices.Clone(r.order)
}

func (r *errorRecord) combined() error {
	var err error
	for _, scope := range r.order {
		err = multierr.Append(err, multierr.Combine(r.scopes[scope]...))
	}
	return err
}

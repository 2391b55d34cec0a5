package knotty

import "fmt"

// Outcome is how a dispatched intent was resolved.
type Outcome int

const (
	// Pending is reported only when the caller stopped waiting before resolution.
	Pending Outcome = iota
	Completed
	Failed
	Cancelled
	// Dropped means Block found the Store busy.
	Dropped
	// Superseded means a later Debounce arrival of the same type replaced it.
	Superseded
	// Rejected means the Store was closed or the intent was nil.
	Rejected
)

var outcomeNames = [...]string{
	Pending:    "Pending",
	Completed:  "Completed",
	Failed:     "Failed",
	Cancelled:  "Cancelled",
	Dropped:    "Dropped",
	Superseded: "Superseded",
	Rejected:   "Rejected",
}

func (o Outcome) String() string {
	if o < Pending || o > Rejected {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Executed reports whether the handler actually ran.
func (o Outcome) Executed() bool {
	return o == Completed || o == Failed || o == Cancelled
}

// Result is the terminal value delivered by Submit.
// Err is the handler fault for Failed and the rejection reason for Rejected.
type Result struct {
	Outcome     Outcome
	Err         error
	ExecutionID string
}

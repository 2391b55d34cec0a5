package debugger

import (
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/knotty_go/knotty/state"
)

type Kind string

const (
	KindIntent Kind = "intent"
	KindState  Kind = "state"
)

// StateChanged is the IntentType of every KindState entry.
const StateChanged = "StateChanged"

// Entry is one recorded event of a Store. Intent entries carry the outcome and
// execution span; state entries carry the old and new snapshots.
type Entry struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Store      string
	Kind       Kind
	IntentType string
	Intent     any
	OldState   any
	NewState   any
	Outcome    string
	Span       state.TimeSpan
}

// PartitionKey keeps entries of one store on one worker, in order.
func (e Entry) PartitionKey() string {
	return e.Store
}

// IntentEntry builds the entry for one executed intent.
func IntentEntry(store, intentType string, intent any, outcome string, span state.TimeSpan) Entry {
	return Entry{
		Store:      store,
		Kind:       KindIntent,
		IntentType: intentType,
		Intent:     intent,
		Outcome:    outcome,
		Span:       span,
	}
}

// StateEntry builds the entry for one state transition.
func StateEntry(store string, oldState, newState any) Entry {
	return Entry{
		Store:      store,
		Kind:       KindState,
		IntentType: StateChanged,
		OldState:   oldState,
		NewState:   newState,
	}
}

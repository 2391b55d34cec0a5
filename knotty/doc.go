// Package knotty is a unidirectional state store driven by intents.
//
// A Store holds one immutable state snapshot. Producers dispatch intents, either
// directly or through a bus.Bus, and the Store schedules each one under the
// Strategy its configuration picks for that intent:
//
//   - Block drops the intent while anything is in flight.
//   - Queue runs intents one at a time in arrival order.
//   - Debounce runs only the latest intent of a type after a quiet window.
//   - CancelPrevious cancels the running execution and starts the new one.
//   - Parallel runs immediately with no mutual exclusion.
//
// The handler receives a context that is cancelled when a CancelPrevious
// dispatch supersedes it or when the Store is closed. Cancellation is
// cooperative: the handler has to observe ctx at its own suspension points,
// and whatever it already changed or emitted stays.
//
// Handler errors never cross the dispatch boundary. They are kept in the
// Store's error record, which is cleared at the start of every execution.
package knotty

// Package state holds a single immutable snapshot and notifies observers of every replacement.
package state

import (
	"sync"

	"github.com/on-the-ground/knotty_go/knotty/effect"
)

// Change describes one wholesale replacement of the snapshot.
// Version starts at 1 for the first replacement after construction.
type Change[S any] struct {
	Old     S
	New     S
	Version uint64
	At      TimeSpan
}

// Cell owns exactly one snapshot at any instant. Writers replace it wholesale;
// readers never observe a partially applied update.
type Cell[S any] struct {
	mu      sync.RWMutex
	current S
	version uint64
	changes *effect.Stream[Change[S]]
}

func NewCell[S any](initial S) *Cell[S] {
	return &Cell[S]{
		current: initial,
		changes: effect.NewStream[Change[S]](),
	}
}

// Load returns the current snapshot.
func (c *Cell[S]) Load() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Version returns how many replacements have happened.
func (c *Cell[S]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Store replaces the snapshot and notifies observers.
func (c *Cell[S]) Store(next S) {
	c.Update(func(S) S { return next })
}

// Update applies fn to the current snapshot under the write lock and stores the result.
// Concurrent updates are serialized, so none of them is lost. fn must not call back into the cell.
func (c *Cell[S]) Update(fn func(S) S) S {
	c.mu.Lock()
	old := c.current
	next := fn(old)
	c.current = next
	c.version++
	change := Change[S]{Old: old, New: next, Version: c.version, At: Now()}
	c.mu.Unlock()

	c.changes.Emit(change)
	return next
}

// Changes is the notification stream of every replacement.
func (c *Cell[S]) Changes() *effect.Stream[Change[S]] {
	return c.changes
}

// Close completes the change stream.
func (c *Cell[S]) Close() {
	c.changes.Complete()
}

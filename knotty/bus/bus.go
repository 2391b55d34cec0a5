// Package bus broadcasts intents to subscribers without the producer holding a
// reference to them.
//
// Subscribers are keyed by Family and weakly owned: a subscription whose owner
// has been collected is never invoked and is pruned on the next Send to its family.
// Dispose is the explicit removal path and should be called on every exit path
// that does not rely on collection.
package bus

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNilOwner    = errors.New("bus: nil subscription owner")
	ErrNilCallback = errors.New("bus: nil subscription callback")
)

// Bus is safe for concurrent use. Registry mutation and delivery snapshots are
// serialized by a single lock; callbacks always run with the lock released.
type Bus struct {
	mu       sync.Mutex
	subs     map[Family][]*Subscription
	declared map[Family][]Family
	known    map[Family]struct{}
	chains   map[Family][]Family
	logger   *zap.Logger
}

type Option func(*Bus)

// WithLogger sets the logger used to report recovered callback panics.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func New(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[Family][]*Subscription),
		declared: make(map[Family][]Family),
		known:    make(map[Family]struct{}),
		chains:   make(map[Family][]Family),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBus = sync.OnceValue(func() *Bus { return New() })

// Default returns the process-wide bus.
func Default() *Bus {
	return defaultBus()
}

// Declare sets the ancestor families of variant V, most-derived first.
// A later Declare for the same variant replaces the earlier one.
func Declare[V any](b *Bus, ancestors ...Family) {
	variant := FamilyOf[V]()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.declared[variant] = slices.Clone(ancestors)
	b.learn(variant)
	for _, ancestor := range ancestors {
		b.learn(ancestor)
	}
	clear(b.chains)
}

// Subscribe registers cb for messages of family T, weakly owned by owner.
// cb receives the live owner, so it does not need to capture it; capturing
// owner in cb would keep it reachable for as long as the subscription exists.
func Subscribe[O any, T any](b *Bus, owner *O, cb func(owner *O, msg T)) (*Subscription, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	return SubscribeFamily(b, owner, FamilyOf[T](), func(o *O, msg any) {
		if typed, ok := msg.(T); ok {
			cb(o, typed)
		}
	})
}

// SubscribeFamily registers an untyped callback under family. It is the only way
// to receive messages through a marker family declared with Declare.
func SubscribeFamily[O any](b *Bus, owner *O, family Family, cb func(owner *O, msg any)) (*Subscription, error) {
	if owner == nil {
		return nil, ErrNilOwner
	}
	if cb == nil {
		return nil, ErrNilCallback
	}
	if family.IsZero() {
		return nil, fmt.Errorf("bus: subscribe: zero family")
	}

	sub := newSubscription(b, family, owner, cb)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.learn(family)
	b.subs[family] = append(b.subs[family], sub)
	return sub, nil
}

// Send delivers msg to every live subscriber of its variant and of each of its
// ancestor families. A nil msg is a no-op. Panicking callbacks are recovered
// and logged; Send itself never fails.
func (b *Bus) Send(msg any) {
	if isNil(msg) {
		return
	}

	b.mu.Lock()
	chain := b.chainOf(familyOfValue(msg))
	b.mu.Unlock()

	for _, family := range chain {
		for _, sub := range b.liveSnapshot(family) {
			b.deliver(sub, msg)
		}
	}
}

// Len returns the number of live subscriptions under family, pruning dead ones.
func (b *Bus) Len(family Family) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(family)
	return len(b.subs[family])
}

func (b *Bus) liveSnapshot(family Family) []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(family)
	live := b.subs[family]
	snapshot := make([]*Subscription, len(live))
	copy(snapshot, live)
	return snapshot
}

// prune drops subscriptions whose owner is gone. Callers must hold b.mu.
func (b *Bus) prune(family Family) {
	subs, ok := b.subs[family]
	if !ok {
		return
	}
	kept := subs[:0]
	for _, sub := range subs {
		if sub.ownerAlive() {
			kept = append(kept, sub)
		}
	}
	clear(subs[len(kept):])
	if len(kept) == 0 {
		delete(b.subs, family)
		return
	}
	b.subs[family] = kept
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[sub.family]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.family] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.family]) == 0 {
		delete(b.subs, sub.family)
	}
}

func (b *Bus) deliver(sub *Subscription, msg any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in bus subscriber",
				zap.Stringer("family", sub.family),
				zap.String("message", fmt.Sprintf("%T", msg)),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.invoke(msg)
}

func isNil(msg any) bool {
	if msg == nil {
		return true
	}
	v := reflect.ValueOf(msg)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

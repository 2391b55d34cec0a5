package bus

import (
	"sync/atomic"
	"weak"
)

// Subscription is one registration on a Bus. Dispose removes exactly this
// registration and is safe to call any number of times.
type Subscription struct {
	bus      *Bus
	family   Family
	alive    func() bool
	call     func(msg any)
	disposed atomic.Bool
}

func newSubscription[O any](b *Bus, family Family, owner *O, cb func(*O, any)) *Subscription {
	ref := weak.Make(owner)
	return &Subscription{
		bus:    b,
		family: family,
		alive:  func() bool { return ref.Value() != nil },
		call: func(msg any) {
			o := ref.Value()
			if o == nil {
				return
			}
			cb(o, msg)
		},
	}
}

// Family returns the key this subscription is registered under.
func (s *Subscription) Family() Family {
	return s.family
}

// Alive reports whether the subscription is neither disposed nor orphaned.
func (s *Subscription) Alive() bool {
	return s.ownerAlive()
}

func (s *Subscription) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.bus.remove(s)
}

func (s *Subscription) ownerAlive() bool {
	return !s.disposed.Load() && s.alive()
}

func (s *Subscription) invoke(msg any) {
	if s.disposed.Load() {
		return
	}
	s.call(msg)
}

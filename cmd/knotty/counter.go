package main

import (
	"context"
	"time"

	"github.com/on-the-ground/knotty_go/knotty"
	"github.com/on-the-ground/knotty_go/knotty/log"
)

type counterState struct {
	Count int `json:"count" yaml:"count"`
}

type CounterIntent interface{ counterIntent() }

type Increment struct {
	Seq  int           `json:"seq" yaml:"seq"`
	Work time.Duration `json:"work" yaml:"work"`
}

type Reset struct{}

func (Increment) counterIntent() {}
func (Reset) counterIntent()     {}

// Milestone is emitted every time the count reaches a multiple of ten.
type Milestone struct{ Count int }

type counterStore = knotty.Store[counterState, CounterIntent, Milestone]

func handleCounter(ctx context.Context, s *counterStore, intent CounterIntent) error {
	switch it := intent.(type) {
	case Increment:
		if it.Work > 0 {
			select {
			case <-time.After(it.Work):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		next := s.Update(func(c counterState) counterState {
			c.Count++
			return c
		})
		log.Eff(ctx, log.LogDebug, "incremented", map[string]interface{}{"seq": it.Seq, "count": next.Count})
		if next.Count%10 == 0 {
			s.Emit(Milestone{Count: next.Count})
		}
	case Reset:
		s.SetState(counterState{})
	}
	return nil
}

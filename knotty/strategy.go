package knotty

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy decides how concurrent dispatches of one intent type are scheduled.
type Strategy int

const (
	Block Strategy = iota
	Queue
	Debounce
	CancelPrevious
	Parallel
)

var strategyNames = [...]string{
	Block:          "Block",
	Queue:          "Queue",
	Debounce:       "Debounce",
	CancelPrevious: "CancelPrevious",
	Parallel:       "Parallel",
}

var strategySummaries = [...]string{
	Block:          "drop if busy",
	Queue:          "FIFO drain, one at a time",
	Debounce:       "last arrival wins after a quiet window",
	CancelPrevious: "cancel the running execution and restart",
	Parallel:       "no mutual exclusion",
}

// Strategies lists every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{Block, Queue, Debounce, CancelPrevious, Parallel}
}

func (s Strategy) Valid() bool {
	return s >= Block && s <= Parallel
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Summary is a one-line description of the scheduling contract.
func (s Strategy) Summary() string {
	if !s.Valid() {
		return ""
	}
	return strategySummaries[s]
}

// ParseStrategy accepts strategy names case-insensitively, with or without
// dashes and underscores ("cancel-previous", "CancelPrevious").
func ParseStrategy(name string) (Strategy, error) {
	normalized := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
	for _, s := range Strategies() {
		if strings.ToLower(strategyNames[s]) == normalized {
			return s, nil
		}
	}
	return Block, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Strategy) MarshalYAML() (any, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

func (s *Strategy) UnmarshalYAML(node *yaml.Node) error {
	return s.UnmarshalText([]byte(node.Value))
}

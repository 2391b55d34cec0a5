package knotty

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is the scheduling rule for one intent type.
type Policy struct {
	Strategy Strategy      `yaml:"strategy"`
	Delay    time.Duration `yaml:"delay,omitempty"`
}

// Policies is a declarative strategy table keyed by intent type name:
//
//	default:
//	  strategy: Block
//	intents:
//	  Increment:
//	    strategy: Parallel
//	  Reset:
//	    strategy: Debounce
//	    delay: 1s
type Policies struct {
	Default Policy            `yaml:"default"`
	Intents map[string]Policy `yaml:"intents"`
}

// LoadPolicies decodes a YAML policy table. Unknown fields are rejected.
func LoadPolicies(r io.Reader) (Policies, error) {
	var p Policies
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Policies{}, fmt.Errorf("knotty: load policies: %w", err)
	}
	return p, nil
}

func LoadPoliciesFile(path string) (Policies, error) {
	f, err := os.Open(path)
	if err != nil {
		return Policies{}, fmt.Errorf("knotty: load policies: %w", err)
	}
	defer f.Close()
	return LoadPolicies(f)
}

func (p Policies) lookup(intent any) Policy {
	if policy, ok := p.Intents[IntentName(intent)]; ok {
		return policy
	}
	return p.Default
}

// StrategyFor returns the strategy for intent, falling back to the default entry.
func (p Policies) StrategyFor(intent any) Strategy {
	return p.lookup(intent).Strategy
}

// DelayFor returns the debounce delay for intent. A missing or zero delay
// falls back to the default entry, then to DefaultDebounceDelay.
func (p Policies) DelayFor(intent any) time.Duration {
	if d := p.lookup(intent).Delay; d > 0 {
		return d
	}
	if p.Default.Delay > 0 {
		return p.Default.Delay
	}
	return DefaultDebounceDelay
}

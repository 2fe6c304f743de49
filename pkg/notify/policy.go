// Package notify decides when a battery alert fires and delivers it.
package notify

import (
	"fmt"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

// Kind is the kind of the last alert that fired. The values are the ones
// stored on disk.
type Kind string

const (
	KindNone Kind = ""
	KindLow  Kind = "low"
	KindHigh Kind = "high"
)

// ParseKind accepts the persisted representation of a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindNone, KindLow, KindHigh:
		return k, nil
	default:
		return KindNone, fmt.Errorf("unknown notification kind %q", s)
	}
}

func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// State is the notification state that outlives a single evaluation.
type State struct {
	LastFired Kind `json:"last_notification_type"`
}

// Action is what the caller should do after an evaluation.
type Action int

const (
	ActionNone Action = iota
	ActionFireLow
	ActionFireHigh
	ActionReset
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionFireLow:
		return "fire-low"
	case ActionFireHigh:
		return "fire-high"
	case ActionReset:
		return "reset"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Fires reports whether the action delivers an alert.
func (a Action) Fires() bool {
	return a == ActionFireLow || a == ActionFireHigh
}

// Policy holds the alert thresholds. A low alert fires for 1..LowMax percent
// while discharging, a high alert above HighMin percent while on power.
type Policy struct {
	LowMax  int `json:"lowMax"`
	HighMin int `json:"highMin"`
}

// DefaultPolicy alerts at 29% and below, and above 90%.
var DefaultPolicy = Policy{LowMax: 29, HighMin: 90}

// Evaluate is DefaultPolicy.Evaluate.
func Evaluate(s jiofi.StatusSnapshot, prior State, quiet bool) (Action, State) {
	return DefaultPolicy.Evaluate(s, prior, quiet)
}

// Evaluate decides the action for a fresh snapshot. It never touches storage:
// the caller loads prior and persists the returned state.
func (p Policy) Evaluate(s jiofi.StatusSnapshot, prior State, quiet bool) (Action, State) {
	if quiet {
		return ActionNone, prior
	}

	pct := s.PercentageRaw

	switch {
	case pct >= 1 && pct <= p.LowMax && s.ChargeState == jiofi.Discharging:
		if prior.LastFired != KindLow {
			return ActionFireLow, State{LastFired: KindLow}
		}
		return ActionNone, prior
	case pct > p.HighMin && (s.ChargeState == jiofi.Charging || s.ChargeState == jiofi.FullCharged):
		if prior.LastFired != KindHigh {
			return ActionFireHigh, State{LastFired: KindHigh}
		}
		return ActionNone, prior
	default:
		if prior.LastFired != KindNone {
			return ActionReset, State{LastFired: KindNone}
		}
		return ActionNone, prior
	}
}

// Validate checks that the thresholds leave a normal band between them.
func (p Policy) Validate() error {
	if p.LowMax < 1 || p.LowMax > 100 {
		return fmt.Errorf("low battery threshold %d out of range [1, 100]", p.LowMax)
	}
	if p.HighMin < 0 || p.HighMin > 100 {
		return fmt.Errorf("high battery threshold %d out of range [0, 100]", p.HighMin)
	}
	if p.LowMax >= p.HighMin {
		return fmt.Errorf("low battery threshold %d must be below high battery threshold %d", p.LowMax, p.HighMin)
	}
	return nil
}

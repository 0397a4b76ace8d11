// Package combat implements the real-time arena engine: stat aggregation,
// trigger dispatch, the ability behavior registry, damage resolution and the
// fight state machine driven by a virtual clock.
package combat

import "time"

// State is the session lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateActive
	StateResolved
)

// String returns a human-readable state label.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateActive:
		return "active"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Outcome is the result of a fight from the player's perspective.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeWin
	OutcomeLose
	OutcomeDraw
	// OutcomeAbandoned marks a fight ended by disconnect; no rewards are applied.
	OutcomeAbandoned
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeWin:
		return "win"
	case OutcomeLose:
		return "lose"
	case OutcomeDraw:
		return "draw"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// ExecuteSentinel is the hp an execute effect forces onto its target.
const ExecuteSentinel = -1e9

// Settings holds the engine's timing and reward parameters.
type Settings struct {
	// Countdown is the number of one-second countdown messages before the fight starts.
	Countdown      int
	TickInterval   time.Duration
	RegenInterval  time.Duration
	AuraInterval   time.Duration
	PoisonInterval time.Duration
	// PoisonDecay is the delay after which an application's stacks are removed.
	PoisonDecay time.Duration
	// PoisonRate scales poison damage against the victim's max hp.
	PoisonRate float64
	// BurnStart is the elapsed fight time after which burn damage begins.
	BurnStart         time.Duration
	BurnInterval      time.Duration
	BurnInitialDamage float64
	BurnIncrement     float64
	GoldPerRound      int
	XPPerRound        int
	// XPPerLevel is the experience needed per current level to level up; 0 disables leveling.
	XPPerLevel int
	// MaxDispatchDepth bounds cascading trigger chains.
	MaxDispatchDepth int
}

// DefaultSettings returns the standard arena timings.
func DefaultSettings() Settings {
	return Settings{
		Countdown:         5,
		TickInterval:      100 * time.Millisecond,
		RegenInterval:     time.Second,
		AuraInterval:      time.Second,
		PoisonInterval:    time.Second,
		PoisonDecay:       10 * time.Second,
		PoisonRate:        0.05,
		BurnStart:         65 * time.Second,
		BurnInterval:      time.Second,
		BurnInitialDamage: 10,
		BurnIncrement:     1,
		GoldPerRound:      2,
		XPPerRound:        1,
		XPPerLevel:        10,
		MaxDispatchDepth:  8,
	}
}

// perSecond converts a rate in events per second into a period.
//
// Precondition: rate > 0.
func perSecond(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

package ability

import "github.com/cory-johannsen/autobattle/internal/game/stats"

// Ability is one owned ability for the duration of a single fight.
//
// Affected is folded into the owner's derived stats on every aggregation;
// AffectedEnemy is folded into the opponent's. Both accumulators and Charges
// are written only by the ability's own behavior.
//
// Invariant: an Ability is never shared between fights.
type Ability struct {
	Def           *Definition
	Affected      stats.Block
	AffectedEnemy stats.Block
	// Charges counts per-fight uses for once-per-fight or stacking behaviors.
	Charges int
}

// New creates a fresh instance of def with neutral accumulators.
//
// Precondition: def must not be nil.
func New(def *Definition) *Ability {
	return &Ability{
		Def:           def,
		Affected:      stats.NewAccumulator(),
		AffectedEnemy: stats.NewAccumulator(),
	}
}

// ID returns the catalog identifier.
func (a *Ability) ID() int { return a.Def.ID }

// HasTag reports whether the ability subscribes to t.
func (a *Ability) HasTag(t Trigger) bool { return a.Def.HasTag(t) }

// IsSetBonus reports whether the ability comes from an equipment set.
func (a *Ability) IsSetBonus() bool { return a.Def.Kind == KindSetBonus }

// Reset clears the per-fight accumulators.
//
// Postcondition: Affected and AffectedEnemy are neutral; Charges == 0.
func (a *Ability) Reset() {
	a.Affected = stats.NewAccumulator()
	a.AffectedEnemy = stats.NewAccumulator()
	a.Charges = 0
}

package combat

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

// Recompute rebuilds self's derived stats from base plus every contribution:
// equipped items, item set stats for active sets, self's ability accumulators
// and opponent's enemy accumulators. It runs on every simulation tick.
//
// Damage already taken carries over: hp is restored as maxHp - damageTaken,
// capped at the new maxHp. A contribution that is malformed or panics is
// skipped for this pass and logged; the others still apply.
//
// Precondition: self must not be nil; opponent may be nil; logger must not be nil.
// Postcondition: Strength >= 1, Accuracy >= 1, Defense >= 0, AttackSpeed >= 0.1,
// PoisonStack in [0, 100], Gold >= 0, HP <= Stats.MaxHp.
func Recompute(self, opponent *Combatant, logger *zap.Logger) {
	damageTaken := 0.0
	if self.initialized {
		damageTaken = self.Stats.MaxHp - self.HP
	}

	derived := self.Base
	baseSpeed := self.Base.AttackSpeed
	speed := baseSpeed

	apply := func(source string, block func() stats.Block) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("skipping contribution after panic",
					zap.String("combatant", self.ID),
					zap.String("source", source),
					zap.Any("panic", r),
				)
			}
		}()
		b := block()
		if err := b.Validate(); err != nil {
			logger.Warn("skipping malformed contribution",
				zap.String("combatant", self.ID),
				zap.String("source", source),
				zap.Error(err),
			)
			return
		}
		derived.AddFlat(b)
		speed += stats.SpeedDelta(baseSpeed, b.AttackSpeed)
	}

	for _, it := range self.Equipment.Items() {
		apply("item:"+it.ID, func() stats.Block { return it.Stats })
		if it.Set != "" && self.SetActive(it.Set) {
			apply("set:"+it.ID, func() stats.Block { return it.SetStats })
		}
	}
	for _, a := range self.Abilities() {
		apply(fmt.Sprintf("ability:%d", a.ID()), func() stats.Block { return a.Affected })
	}
	if opponent != nil {
		for _, a := range opponent.Abilities() {
			apply(fmt.Sprintf("enemy:%d", a.ID()), func() stats.Block { return a.AffectedEnemy })
		}
	}

	derived.AttackSpeed = speed
	derived.Clamp()
	self.Stats = derived

	self.HP = math.Min(derived.MaxHp-damageTaken, derived.MaxHp)
	self.initialized = true

	self.PoisonStack = min(max(self.PoisonStack, 0), MaxPoisonStack)
	self.Gold = max(self.Gold, 0)
}

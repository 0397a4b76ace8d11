package combat

import (
	"math"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
)

// Roll returns the raw attack roll: a uniform integer in [0, strength-1] plus accuracy.
//
// Precondition: src must not be nil.
// Postcondition: accuracy <= result <= accuracy + max(strength,1) - 1.
func Roll(attacker *Combatant, src dice.Source) float64 {
	sides := max(int(attacker.Stats.Strength), 1)
	return float64(src.Intn(sides)) + attacker.Stats.Accuracy
}

// Mitigate applies percentage defense then flat reduction to raw.
//
// Postcondition: Returns max(0, raw*100/(100+defense) - flat).
func Mitigate(raw, defense, flat float64) float64 {
	return math.Max(0, raw*100/(100+defense)-flat)
}

// DodgeChance converts a dodge rating into a probability in [0, 1).
//
// Postcondition: Returns 0 for rate <= 0, otherwise 1 - 100/(100+rate).
func DodgeChance(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return 1 - 100/(100+rate)
}

// ResolveAttack performs one attack of attacker against defender.
//
// Order: roll and mitigate; dodge check (a dodge dispatches ON_DODGE on the
// defender and ends the attack); otherwise ON_ATTACKED (defender), ON_ATTACK
// (attacker), ON_DAMAGE (defender) and ON_DEAL_DAMAGE (attacker) all see the
// same mitigated value before it is applied. Execute effects run in
// ON_DEAL_DAMAGE and force the defender's hp to ExecuteSentinel directly, so
// an invincible defender keeps the forced hp and dies once invincibility ends.
//
// Precondition: the session is active; attacker and defender are its combatants.
func (s *Session) ResolveAttack(attacker, defender *Combatant) {
	s.Emit(Event{Type: EventAttack, CombatantID: attacker.ID})

	raw := Roll(attacker, s.rand)
	damage := Mitigate(raw, defender.Stats.Defense, defender.Stats.FlatDmgReduction)

	if p := DodgeChance(defender.Stats.DodgeRate); p > 0 && s.rand.Float64() < p {
		s.logf("%s dodges %s's attack", defender.Name, attacker.Name)
		s.dispatch(ability.OnDodge, defender, attacker, 0, false)
		return
	}

	s.dispatch(ability.OnAttacked, defender, attacker, damage, true)
	s.dispatch(ability.OnAttack, attacker, defender, damage, true)
	s.dispatch(ability.OnDamage, defender, attacker, damage, true)
	s.dispatch(ability.OnDealDamage, attacker, defender, damage, true)
	s.applyDamage(defender, damage, "attack")
}

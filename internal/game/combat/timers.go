package combat

import (
	"github.com/cory-johannsen/autobattle/internal/game/ability"
)

// scheduleAttack arms c's next attack. The period is re-read from the current
// attack speed each time, so speed changes apply from the next cycle.
func (s *Session) scheduleAttack(c, target *Combatant) {
	c.attackTimer = s.timers.AfterFunc(perSecond(c.Stats.AttackSpeed), func() {
		if s.state != StateActive {
			return
		}
		s.ResolveAttack(c, target)
		if s.state == StateActive {
			s.scheduleAttack(c, target)
		}
	})
}

// ensureRegen starts c's regen timer when hp regen is non-zero and none runs.
func (s *Session) ensureRegen(c *Combatant) {
	if c.Stats.HpRegen == 0 || c.regenTimer.Active() {
		return
	}
	c.regenTimer = s.timers.Every(s.settings.RegenInterval, func() {
		r := c.Stats.HpRegen
		switch {
		case r > 0:
			s.Heal(c, r, "regen")
		case r < 0:
			// drains hp directly, ignoring invincibility
			c.HP += r
			s.Emit(Event{Type: EventDamage, CombatantID: c.ID, Amount: -r, Source: "regen"})
		default:
			c.regenTimer.Stop()
		}
	})
}

// startAbilityTimers arms one AURA timer per aura ability and one ACTIVE timer
// per active ability of c. Each timer invokes only its own ability.
func (s *Session) startAbilityTimers(c, opponent *Combatant) {
	for _, a := range c.Abilities() {
		if a.HasTag(ability.Aura) {
			s.timers.Every(s.settings.AuraInterval, func() {
				s.dispatcher.Invoke(a, ability.Aura, s.context(c, opponent))
			})
		}
		if a.HasTag(ability.Active) && a.Def.Rate > 0 {
			s.timers.Every(perSecond(a.Def.Rate), func() {
				s.dispatcher.Invoke(a, ability.Active, s.context(c, opponent))
			})
		}
	}
}

// poisonTick deals one second of poison damage through ON_DAMAGE.
func (s *Session) poisonTick(c *Combatant) {
	if c.PoisonStack <= 0 {
		c.poisonTimer.Stop()
		return
	}
	rate := s.settings.PoisonRate
	damage := float64(c.PoisonStack) * (rate*c.Stats.MaxHp + rate*100) * 0.1
	opponent := s.other(c)
	s.dispatch(ability.OnDamage, c, opponent, damage, true)
	s.applyDamage(c, damage, "poison")
}

// startBurn arms the escalating burn applied to both combatants.
func (s *Session) startBurn() {
	s.burnDamage = s.settings.BurnInitialDamage
	s.logf("The arena begins to burn!")
	s.burnTimer = s.timers.Every(s.settings.BurnInterval, func() {
		damage := s.burnDamage
		s.applyDamage(s.player, damage, "burn")
		s.applyDamage(s.opponent, damage, "burn")
		s.burnDamage += s.settings.BurnIncrement
	})
}

// tick recomputes both combatants, starts burn once due and checks termination.
func (s *Session) tick() {
	if s.state != StateActive {
		return
	}
	Recompute(s.player, s.opponent, s.logger)
	Recompute(s.opponent, s.player, s.logger)
	s.ensureRegen(s.player)
	s.ensureRegen(s.opponent)

	if s.burnTimer == nil && s.Now() > s.settings.BurnStart {
		s.startBurn()
	}

	playerDown := s.player.Defeated()
	opponentDown := s.opponent.Defeated()
	switch {
	case playerDown && opponentDown:
		s.resolve(OutcomeDraw)
	case playerDown:
		s.resolve(OutcomeLose)
	case opponentDown:
		s.resolve(OutcomeWin)
	}
}

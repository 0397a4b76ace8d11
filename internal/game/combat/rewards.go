package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
)

// Reward is what the player earned from one fight.
type Reward struct {
	Gold         int
	XP           int
	LevelsGained int
}

// ComputeReward returns the gold and experience for a fight fought in round.
//
// Postcondition: Gold = goldPerRound*round + income, XP = xpPerRound*round.
func ComputeReward(s Settings, round int, income float64) Reward {
	return Reward{
		Gold: s.GoldPerRound*round + int(income),
		XP:   s.XPPerRound*round,
	}
}

// applyRewards credits the player, records the win or lost life, advances the
// round and levels up. Only the player is rewarded: the opponent is a recorded
// snapshot that is never written back.
func (s *Session) applyRewards(outcome Outcome) Reward {
	p := s.player
	r := ComputeReward(s.settings, p.Round, p.Stats.Income)
	p.Gold = max(p.Gold+r.Gold, 0)
	p.XP += r.XP
	switch outcome {
	case OutcomeWin:
		p.Wins++
	case OutcomeLose:
		p.Lives--
	}
	p.Round++
	r.LevelsGained = s.levelUp(p)
	s.logger.Debug("rewards applied",
		zap.String("combatant", p.ID),
		zap.Int("gold", r.Gold),
		zap.Int("xp", r.XP),
		zap.Int("levels", r.LevelsGained),
	)
	return r
}

// levelUp spends experience on levels, dispatching LEVEL_UP for each one with
// no opponent in the context.
func (s *Session) levelUp(c *Combatant) int {
	per := s.settings.XPPerLevel
	if per <= 0 {
		return 0
	}
	gained := 0
	for c.XP >= c.Level*per {
		c.XP -= c.Level * per
		c.Level++
		gained++
		s.logf("%s reached level %d", c.Name, c.Level)
		s.dispatch(ability.LevelUp, c, nil, 0, false)
	}
	return gained
}

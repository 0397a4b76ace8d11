package combat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/character"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

func damageFrom(rec *combat.Recorder, source string) []combat.Event {
	var out []combat.Event
	for _, e := range rec.OfType(combat.EventDamage) {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

func TestSession_Countdown(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry(), func(o *combat.Options) {
		o.Settings = combat.DefaultSettings()
	})
	require.NoError(t, s.Load(fighter("p", sturdy(100)), fighter("o", sturdy(100))))
	assert.Equal(t, combat.StateCountdown, s.State())

	s.Clock().Advance(4 * time.Second)
	assert.Equal(t, combat.StateCountdown, s.State())
	var msgs []string
	for _, e := range rec.OfType(combat.EventCombatLog) {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{
		"Battle starts in 5...",
		"Battle starts in 4...",
		"Battle starts in 3...",
		"Battle starts in 2...",
		"Battle starts in 1...",
	}, msgs)

	s.Clock().Advance(time.Second)
	assert.Equal(t, combat.StateActive, s.State())
	assert.Equal(t, time.Duration(0), s.Now())
}

func TestSession_LoadTwiceRejected(t *testing.T) {
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	require.NoError(t, s.Load(fighter("p", sturdy(100)), fighter("o", sturdy(100))))
	assert.ErrorIs(t, s.Load(fighter("p", sturdy(100)), fighter("o", sturdy(100))), combat.ErrInvalidState)
}

func TestNewSession_RequiresRegistry(t *testing.T) {
	_, err := combat.NewSession(combat.Options{})
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	s := combat.DefaultSettings()
	require.NoError(t, s.Validate())
	s.TickInterval = 0
	s.BurnInterval = -time.Second
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_interval")
	assert.Contains(t, err.Error(), "burn_interval")
}

// Scenario: one poison stack ticks every second and decays after ten seconds.
func TestSession_PoisonLifecycle(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := fighter("p", sturdy(100)), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)

	s.ApplyPoison(opponent, 1)
	assert.Equal(t, 1, opponent.PoisonStack)
	assert.True(t, opponent.Poisoned())

	s.Clock().Advance(time.Second)
	ticks := damageFrom(rec, "poison")
	require.Len(t, ticks, 1)
	assert.InDelta(t, 1.0, ticks[0].Amount, 1e-9)
	assert.InDelta(t, 99.0, opponent.HP, 1e-9)

	s.Clock().Advance(9 * time.Second)
	assert.Equal(t, 0, opponent.PoisonStack)
	assert.False(t, opponent.Poisoned())
	assert.Len(t, damageFrom(rec, "poison"), 9)

	s.Clock().Advance(5 * time.Second)
	assert.Len(t, damageFrom(rec, "poison"), 9, "cleared poison never ticks again")
}

func TestSession_PoisonStackClamped(t *testing.T) {
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := fighter("p", sturdy(1000)), fighter("o", sturdy(1000))
	startFight(t, s, player, opponent)
	s.GrantInvincibility(opponent, 20*time.Second)
	s.ApplyPoison(opponent, 80)
	s.ApplyPoison(opponent, 80)
	assert.Equal(t, combat.MaxPoisonStack, opponent.PoisonStack)
	s.Clock().Advance(10 * time.Second)
	assert.Equal(t, 0, opponent.PoisonStack)
}

// Scenario: past 65s both combatants burn for 10, then 11 a second later.
func TestSession_BurnEscalation(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := fighter("p", sturdy(10_000)), fighter("o", sturdy(10_000))
	startFight(t, s, player, opponent)

	s.Clock().Advance(66 * time.Second)
	assert.Empty(t, damageFrom(rec, "burn"))

	s.Clock().Advance(100 * time.Millisecond)
	burns := damageFrom(rec, "burn")
	require.Len(t, burns, 2)
	assert.ElementsMatch(t, []string{"p", "o"}, []string{burns[0].CombatantID, burns[1].CombatantID})
	assert.Equal(t, 10.0, burns[0].Amount)
	assert.Equal(t, 10.0, burns[1].Amount)
	assert.Equal(t, burns[0].At, burns[1].At)

	s.Clock().Advance(time.Second)
	burns = damageFrom(rec, "burn")
	require.Len(t, burns, 4)
	assert.Equal(t, 11.0, burns[2].Amount)
	assert.Equal(t, 11.0, burns[3].Amount)
}

// Scenario: both combatants at or below zero in the same tick is a draw.
func TestSession_SimultaneousDeathIsDraw(t *testing.T) {
	var got combat.Result
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry(), func(o *combat.Options) {
		o.OnResolved = func(r combat.Result) { got = r }
	})
	player, opponent := fighter("p", sturdy(100)), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)

	player.HP = -1
	opponent.HP = 0
	s.Clock().Advance(100 * time.Millisecond)
	assert.Equal(t, combat.OutcomeDraw, s.Outcome())
	assert.Equal(t, combat.OutcomeDraw, got.Outcome)
	assert.Equal(t, 0, s.Clock().Pending(), "every timer is cleared on resolution")
	require.Len(t, rec.OfType(combat.EventEndBattle), 1)
	assert.Equal(t, "draw", rec.OfType(combat.EventEndBattle)[0].Outcome)
}

func TestSession_WinAppliesRewards(t *testing.T) {
	var got combat.Result
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry(), func(o *combat.Options) {
		o.OnResolved = func(r combat.Result) { got = r }
	})
	base := sturdy(100)
	base.Income = 1
	player, opponent := fighter("p", base), fighter("o", sturdy(100))
	player.Round, player.Gold, player.Wins = 3, 4, 2
	startFight(t, s, player, opponent)

	opponent.HP = 0
	s.Clock().Advance(100 * time.Millisecond)
	require.Equal(t, combat.OutcomeWin, s.Outcome())

	settings := testSettings()
	wantGold := 4 + settings.GoldPerRound*3 + 1
	assert.Equal(t, wantGold, player.Gold)
	assert.Equal(t, settings.XPPerRound*3, player.XP)
	assert.Equal(t, 3, player.Wins)
	assert.Equal(t, 3, player.Lives)
	assert.Equal(t, 4, player.Round)

	require.NotNil(t, got.Player)
	assert.Equal(t, wantGold, got.Player.Gold)
	assert.Equal(t, combat.ComputeReward(settings, 3, 1), combat.Reward{Gold: got.Reward.Gold, XP: got.Reward.XP})
}

func TestSession_LossCostsLifeAndEndsGame(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := fighter("p", sturdy(100)), fighter("o", sturdy(100))
	player.Lives = 1
	startFight(t, s, player, opponent)

	player.HP = -3
	s.Clock().Advance(100 * time.Millisecond)
	assert.Equal(t, combat.OutcomeLose, s.Outcome())
	assert.Equal(t, 0, player.Lives)
	require.Len(t, rec.OfType(combat.EventGameOver), 1)
	assert.Equal(t, "p", rec.OfType(combat.EventGameOver)[0].CombatantID)
}

func TestSession_InvincibleAtZeroIsNotDefeated(t *testing.T) {
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := fighter("p", sturdy(100)), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)

	s.GrantInvincibility(player, time.Second)
	player.HP = -5
	s.Clock().Advance(500 * time.Millisecond)
	assert.Equal(t, combat.StateActive, s.State())
	s.Clock().Advance(600 * time.Millisecond)
	assert.Equal(t, combat.OutcomeLose, s.Outcome())
}

func TestSession_AbortClearsTimersWithoutReward(t *testing.T) {
	var got combat.Result
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry(), func(o *combat.Options) {
		o.OnResolved = func(r combat.Result) { got = r }
	})
	player, opponent := fighter("p", sturdy(100)), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)
	s.ApplyPoison(opponent, 3)
	s.Clock().Advance(2 * time.Second)

	s.Abort("player disconnected")
	assert.Equal(t, combat.StateResolved, s.State())
	assert.Equal(t, combat.OutcomeAbandoned, got.Outcome)
	assert.Equal(t, "player disconnected", got.Reason)
	assert.Equal(t, 0, s.Clock().Pending())
	assert.Equal(t, 0, player.Gold)
	assert.Equal(t, 1, player.Round)
	assert.Empty(t, rec.Triggers())

	s.Abort("again")
	assert.Equal(t, "player disconnected", got.Reason, "abort after resolution is a no-op")
}

func TestSession_AttackSpeedChangeAppliesNextCycle(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := fighter("p", sturdy(100)), fighter("o", sturdy(100))
	opponent.Base.AttackSpeed = 0.1
	startFight(t, s, player, opponent)

	player.Base.AttackSpeed = 2
	s.Clock().Advance(time.Second) // first attack still uses the original 1s period
	s.Clock().Advance(500 * time.Millisecond)
	var attacks int
	for _, e := range rec.OfType(combat.EventAttack) {
		if e.CombatantID == "p" {
			attacks++
		}
	}
	assert.Equal(t, 2, attacks)
}

func TestSession_RegenerationTalentStartsRegen(t *testing.T) {
	abilities, _ := loadContent(t)
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player := fighter("p", sturdy(100), def(t, abilities, combat.Regeneration))
	opponent := fighter("o", sturdy(100))
	startFight(t, s, player, opponent)
	player.HP = 50

	s.Clock().Advance(time.Second)
	heals := rec.OfType(combat.EventHealing)
	require.NotEmpty(t, heals)
	assert.Equal(t, "regen", heals[0].Source)
	assert.InDelta(t, 1.2, heals[0].Amount, 1e-9)
}

func TestSession_FullFightWithContent(t *testing.T) {
	abilities, items := loadContent(t)
	snaps, err := character.LoadSnapshots(contentDir + "/snapshots/sample.yaml")
	require.NoError(t, err)
	byID := map[string]*character.Snapshot{}
	for _, sn := range snaps {
		byID[sn.ID] = sn
	}
	player, err := combat.NewCombatant(byID["ada"], abilities, items)
	require.NoError(t, err)
	opponent, err := combat.NewCombatant(byID["bram"], abilities, items)
	require.NoError(t, err)

	s, rec := newSession(t, dice.NewSeededSource(7), combat.DefaultRegistry(), func(o *combat.Options) {
		o.QuestItems = items.QuestItems()
		o.Shop = []combat.ShopListing{{ItemID: "rusty_sword", Price: 2}}
	})
	require.NoError(t, s.Load(player, opponent))
	require.True(t, s.FastForward(10*time.Minute))
	assert.NotEqual(t, combat.OutcomeNone, s.Outcome())
	assert.Equal(t, 0, s.Clock().Pending())
	assert.NotEmpty(t, rec.OfType(combat.EventAttack))

	res, ok := s.Result()
	require.True(t, ok)
	require.NoError(t, res.Player.Validate())
	assert.Equal(t, byID["ada"].Round+1, res.Player.Round)
	for _, a := range player.Abilities() {
		assert.Equal(t, stats.NewAccumulator(), a.Affected, "accumulators are reset after the fight")
	}
}

func TestSession_RunInRealTime(t *testing.T) {
	settings := testSettings()
	settings.TickInterval = time.Millisecond
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry(), func(o *combat.Options) {
		o.Settings = settings
	})
	player, opponent := fighter("p", sturdy(100)), fighter("o", sturdy(100))
	require.NoError(t, s.Load(player, opponent))

	posts := make(chan func(), 1)
	posts <- func() { s.Abort("shutdown") }
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx, posts))
	assert.Equal(t, combat.OutcomeAbandoned, s.Outcome())
}

func contentFighter(t *testing.T, id string, ids ...int) *combat.Combatant {
	t.Helper()
	abilities, _ := loadContent(t)
	var defs []*ability.Definition
	for _, n := range ids {
		defs = append(defs, def(t, abilities, n))
	}
	return fighter(id, sturdy(100), defs...)
}

// Scenario: Fireball at 0.25 activations per second lands at 4s and 8s.
func TestSession_FireballActiveTimer(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := contentFighter(t, "p", combat.Fireball), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)

	s.Clock().Advance(10 * time.Second)
	hits := damageFrom(rec, "Fireball")
	require.Len(t, hits, 2)
	assert.Equal(t, 4*time.Second, hits[0].At)
	assert.Equal(t, 8*time.Second, hits[1].At)
	assert.InDelta(t, 9.0, hits[0].Amount, 1e-9)
	assert.InDelta(t, 82.0, opponent.HP, 1e-9)
}

func TestSession_AbilityTimersStopOnAbort(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player := contentFighter(t, "p", combat.Fireball, combat.FrostAura)
	startFight(t, s, player, fighter("o", sturdy(100)))
	s.Clock().Advance(5 * time.Second)
	require.Len(t, damageFrom(rec, "Fireball"), 1)

	s.Abort("player disconnected")
	assert.Equal(t, 0, s.Clock().Pending())
	s.Clock().Advance(10 * time.Second)
	assert.Len(t, damageFrom(rec, "Fireball"), 1)
}

func TestSession_AbilityTimersStopOnResolve(t *testing.T) {
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := contentFighter(t, "p", combat.Fireball, combat.HealingLight), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)

	opponent.HP = 0
	s.Clock().Advance(100 * time.Millisecond)
	require.Equal(t, combat.OutcomeWin, s.Outcome())
	assert.Equal(t, 0, s.Clock().Pending())
}

// Scenario: Frost Aura slows the enemy by 0.05 each second until the 0.4 cap.
func TestSession_AuraFiresEverySecond(t *testing.T) {
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := contentFighter(t, "p", combat.FrostAura), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)
	aura := player.Talents[0]

	s.Clock().Advance(3 * time.Second)
	assert.InDelta(t, 0.85, aura.AffectedEnemy.AttackSpeed, 1e-9)

	s.Clock().Advance(7 * time.Second)
	assert.InDelta(t, 0.6, aura.AffectedEnemy.AttackSpeed, 1e-9)
	assert.InDelta(t, 0.6, opponent.Stats.AttackSpeed, 1e-9)
}

func TestSession_ZephyrBuildsSpeedToCap(t *testing.T) {
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player := contentFighter(t, "p", combat.ZephyrSet)
	startFight(t, s, player, fighter("o", sturdy(100)))
	set := player.SetBonuses[0]

	s.Clock().Advance(2 * time.Second)
	assert.InDelta(t, 1.1, set.Affected.AttackSpeed, 1e-9)

	s.Clock().Advance(18 * time.Second)
	assert.InDelta(t, 1.5, set.Affected.AttackSpeed, 1e-9)
	assert.InDelta(t, 1.5, player.Stats.AttackSpeed, 1e-9)
}

func TestSession_HealingLightHeals(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player := contentFighter(t, "p", combat.HealingLight)
	startFight(t, s, player, fighter("o", sturdy(100)))
	player.HP = 50

	s.Clock().Advance(5 * time.Second)
	heals := rec.OfType(combat.EventHealing)
	require.Len(t, heals, 1)
	assert.Equal(t, "Healing Light", heals[0].Source)
	assert.InDelta(t, 10.0, heals[0].Amount, 1e-9)
	assert.InDelta(t, 60.0, player.HP, 1e-9)
}

func TestSession_DivineShieldAtFightStart(t *testing.T) {
	s, _ := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := contentFighter(t, "p", combat.DivineShield), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)
	require.True(t, player.Invincible)

	assert.False(t, s.DealDamage(opponent, player, 50, "test"))
	assert.InDelta(t, 100.0, player.HP, 1e-9)

	s.Clock().Advance(1900 * time.Millisecond)
	assert.True(t, player.Invincible)
	s.Clock().Advance(200 * time.Millisecond)
	assert.False(t, player.Invincible)
	assert.True(t, s.DealDamage(opponent, player, 50, "test"))
	assert.InDelta(t, 50.0, player.HP, 1e-9)
}

// Scenario: ON_DAMAGE runs before a lethal poison tick lands, so Phoenix
// shields and heals in time.
func TestSession_PhoenixSurvivesLethalPoison(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	player, opponent := contentFighter(t, "p", combat.PhoenixSet), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)
	player.HP = 0.5
	s.ApplyPoison(player, 1)

	s.Clock().Advance(time.Second)
	assert.Equal(t, combat.StateActive, s.State())
	assert.True(t, player.Invincible)
	assert.InDelta(t, 30.5, player.HP, 1e-9)
	assert.Empty(t, damageFrom(rec, "poison"), "the shielded tick deals nothing")
	assert.Equal(t, 1, player.SetBonuses[0].Charges)
}

func TestSession_ViperSetPoisonsOnAttack(t *testing.T) {
	s, rec := newSession(t, fixedSource{}, combat.DefaultRegistry())
	player, opponent := contentFighter(t, "p", combat.ViperSet), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)

	s.Clock().Advance(time.Second)
	assert.Equal(t, 2, opponent.PoisonStack)
	s.Clock().Advance(time.Second)
	assert.NotEmpty(t, damageFrom(rec, "poison"))
	assert.Zero(t, player.PoisonStack)
}

func TestSession_InfernoSetBurstsOnAttack(t *testing.T) {
	s, rec := newSession(t, fixedSource{}, combat.DefaultRegistry())
	player, opponent := contentFighter(t, "p", combat.InfernoSet), fighter("o", sturdy(100))
	startFight(t, s, player, opponent)

	s.Clock().Advance(time.Second)
	bursts := damageFrom(rec, "Inferno Set")
	require.Len(t, bursts, 1)
	assert.Equal(t, "o", bursts[0].CombatantID)
	assert.InDelta(t, 7.5, bursts[0].Amount, 1e-9)
}

// Scenario: negative regen drains hp each second even while invincible.
func TestSession_NegativeRegenIgnoresInvincibility(t *testing.T) {
	s, rec := newSession(t, dice.NewSeededSource(1), combat.DefaultRegistry())
	base := sturdy(100)
	base.HpRegen = -5
	player := fighter("p", base)
	startFight(t, s, player, fighter("o", sturdy(100)))
	s.GrantInvincibility(player, 10*time.Second)

	s.Clock().Advance(2 * time.Second)
	drains := damageFrom(rec, "regen")
	require.Len(t, drains, 2)
	assert.Equal(t, "p", drains[0].CombatantID)
	assert.InDelta(t, 5.0, drains[0].Amount, 1e-9)
	assert.InDelta(t, 90.0, player.HP, 1e-9)
}

package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/inventory"
	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

// behaviorRig runs a single catalog ability against a fake arena.
type behaviorRig struct {
	self, opp *combat.Combatant
	arena     *fakeArena
	rec       *combat.Recorder
	disp      *combat.Dispatcher
	rng       fixedSource
}

func newRig(t *testing.T, id int) *behaviorRig {
	t.Helper()
	abilities, _ := loadContent(t)
	return rigWith(def(t, abilities, id))
}

func rigWith(d *ability.Definition) *behaviorRig {
	r := &behaviorRig{
		self:  fighter("self", sturdy(100), d),
		opp:   fighter("opp", sturdy(100)),
		arena: &fakeArena{},
		rec:   &combat.Recorder{},
		disp:  combat.NewDispatcher(combat.DefaultRegistry(), zap.NewNop(), 0),
	}
	ready(r.self, r.opp)
	ready(r.opp, r.self)
	return r
}

func (r *behaviorRig) ability() *ability.Ability { return r.self.Talents[0] }

func (r *behaviorRig) fire(trigger ability.Trigger, mutate ...func(*combat.Context)) int {
	ctx := &combat.Context{
		Self:     r.self,
		Opponent: r.opp,
		Sink:     r.rec,
		Arena:    r.arena,
		Rand:     r.rng,
		Logger:   zap.NewNop(),
	}
	for _, fn := range mutate {
		fn(ctx)
	}
	return r.disp.Dispatch(trigger, ctx)
}

func withDamage(d float64) func(*combat.Context) {
	return func(ctx *combat.Context) { ctx.Damage, ctx.HasDamage = d, true }
}

func TestBloodlust_CapsAndResets(t *testing.T) {
	r := newRig(t, combat.Bloodlust)
	for range 15 {
		r.fire(ability.OnAttack)
	}
	assert.Equal(t, 10.0, r.ability().Affected.Strength)

	r.fire(ability.FightEnd)
	assert.Equal(t, stats.NewAccumulator(), r.ability().Affected)
}

func TestFrostAura_FloorsEnemySpeed(t *testing.T) {
	r := newRig(t, combat.FrostAura)
	for range 20 {
		r.fire(ability.Aura)
	}
	assert.InDelta(t, 0.6, r.ability().AffectedEnemy.AttackSpeed, 1e-9)

	ready(r.opp, r.self)
	assert.InDelta(t, 0.6, r.opp.Stats.AttackSpeed, 1e-9)
}

func TestFrostAura_FullSlowStaysAtFloor(t *testing.T) {
	for _, limit := range []float64{1, 0} {
		r := rigWith(&ability.Definition{
			ID:      combat.FrostAura,
			Name:    "Frost Aura",
			Kind:    ability.KindTalent,
			Scaling: 0.5,
			Cap:     limit,
			Tags:    []ability.Trigger{ability.Aura, ability.FightEnd},
		})
		r.opp.Base.AttackSpeed = 2
		ready(r.opp, r.self)

		prev := r.opp.Stats.AttackSpeed
		for range 5 {
			r.fire(ability.Aura)
			ready(r.opp, r.self)
			assert.LessOrEqual(t, r.opp.Stats.AttackSpeed, prev, "cap %v", limit)
			prev = r.opp.Stats.AttackSpeed
		}
		assert.InDelta(t, stats.MinSpeedMultiplier, r.ability().AffectedEnemy.AttackSpeed, 1e-9, "cap %v", limit)
		assert.InDelta(t, stats.MinAttackSpeed, r.opp.Stats.AttackSpeed, 1e-9, "cap %v", limit)
	}
}

func TestExecutioner(t *testing.T) {
	r := newRig(t, combat.Executioner)
	r.opp.HP = 30
	r.fire(ability.OnDealDamage, withDamage(10))
	assert.Equal(t, 30.0, r.opp.HP, "20 hp left is above 10%")

	r.fire(ability.OnDealDamage, withDamage(25))
	assert.Equal(t, combat.ExecuteSentinel, r.opp.HP)

	// missing damage is a failed invocation
	assert.Zero(t, r.fire(ability.OnDealDamage))
}

func TestSecondWind_OncePerFight(t *testing.T) {
	r := newRig(t, combat.SecondWind)
	r.self.HP = 35
	r.fire(ability.OnDamage, withDamage(10))
	assert.InDelta(t, 20.0, r.arena.healed, 1e-9)
	assert.Equal(t, 1, r.ability().Charges)

	r.fire(ability.OnDamage, withDamage(10))
	assert.InDelta(t, 20.0, r.arena.healed, 1e-9)

	r.fire(ability.FightEnd)
	assert.Zero(t, r.ability().Charges)
}

func TestPhoenix_SurvivesFirstLethalHit(t *testing.T) {
	abilities, _ := loadContent(t)
	r := newRig(t, combat.Bloodlust)
	r.self.Talents = nil
	r.self.SetBonuses = []*ability.Ability{ability.New(def(t, abilities, combat.PhoenixSet))}
	r.self.HP = 5

	r.fire(ability.OnDamage, withDamage(10))
	assert.True(t, r.self.Invincible)
	assert.Equal(t, 2*time.Second, r.arena.shield)
	assert.InDelta(t, 35.0, r.self.HP, 1e-9)

	r.self.Invincible = false
	r.self.HP = 5
	r.fire(ability.OnDamage, withDamage(10))
	assert.False(t, r.self.Invincible, "only once per fight")
}

func TestVenomFang_RollsRate(t *testing.T) {
	r := newRig(t, combat.VenomFang)
	r.rng = fixedSource{f: 0.9}
	r.fire(ability.OnAttack)
	assert.Zero(t, r.arena.poisoned)

	r.rng = fixedSource{f: 0.1}
	r.fire(ability.OnAttack)
	assert.Equal(t, 1, r.arena.poisoned)
}

func TestThorns_ReflectsDamage(t *testing.T) {
	r := newRig(t, combat.Thorns)
	r.fire(ability.OnAttacked, withDamage(10))
	assert.Equal(t, []float64{3}, r.arena.dealt)
	assert.Equal(t, 97.0, r.opp.HP)
}

func TestGreedAndAppraiser(t *testing.T) {
	r := newRig(t, combat.Greed)
	r.fire(ability.FightEnd)
	assert.Equal(t, 2, r.self.Gold)

	a := newRig(t, combat.Appraiser)
	shop := []combat.ShopListing{{ItemID: "a", Price: 9}, {ItemID: "b", Price: 5}}
	a.fire(ability.FightEnd, func(ctx *combat.Context) { ctx.Shop = shop })
	assert.Equal(t, 2, a.self.Gold)

	// no shop supplied
	assert.Zero(t, a.fire(ability.FightEnd))
}

func TestScavenger_AwardsQuestItem(t *testing.T) {
	_, items := loadContent(t)
	pool := items.QuestItems()
	require.NotEmpty(t, pool)

	r := newRig(t, combat.Scavenger)
	r.rng = fixedSource{n: 1, f: 0.1}
	r.fire(ability.FightEnd, func(ctx *combat.Context) { ctx.QuestItems = pool })
	assert.Equal(t, []string{pool[1].ID}, r.self.QuestItems)

	r.rng = fixedSource{f: 0.9}
	r.fire(ability.FightEnd, func(ctx *combat.Context) { ctx.QuestItems = []*inventory.Item{} })
	assert.Len(t, r.self.QuestItems, 1)
}

func TestBerserker_TogglesBelowHalf(t *testing.T) {
	r := newRig(t, combat.Berserker)
	r.fire(ability.Aura)
	assert.Equal(t, 1.0, r.ability().Affected.AttackSpeed)
	r.self.HP = 40
	r.fire(ability.Aura)
	assert.Equal(t, 1.5, r.ability().Affected.AttackSpeed)
}

func TestBulwarkSet_AppliesFlatReduction(t *testing.T) {
	abilities, _ := loadContent(t)
	c := fighter("c", stats.Block{Strength: 5, Accuracy: 1, AttackSpeed: 1, MaxHp: 100},
		def(t, abilities, combat.BulwarkSet))
	disp := combat.NewDispatcher(combat.DefaultRegistry(), zap.NewNop(), 0)
	disp.Dispatch(ability.FightStart, &combat.Context{Self: c})
	ready(c, nil)
	assert.Equal(t, 15.0, c.Stats.Defense)
	assert.Equal(t, 1.0, c.Stats.FlatDmgReduction)
}

package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/game/inventory"
	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

const contentDir = "../../../content"

// fixedSource always rolls n (bounded by the die) and draws f.
type fixedSource struct {
	n int
	f float64
}

func (s fixedSource) Intn(n int) int   { return min(s.n, n-1) }
func (s fixedSource) Float64() float64 { return s.f }

func loadContent(t testing.TB) (*ability.Catalog, *inventory.Catalog) {
	t.Helper()
	abilities, err := ability.LoadDirectory(contentDir + "/abilities")
	require.NoError(t, err)
	items, err := inventory.LoadDirectory(contentDir + "/items")
	require.NoError(t, err)
	return abilities, items
}

func def(t testing.TB, cat *ability.Catalog, id int) *ability.Definition {
	t.Helper()
	d, ok := cat.Get(id)
	require.True(t, ok, "ability %d", id)
	return d
}

func fighter(id string, base stats.Block, defs ...*ability.Definition) *combat.Combatant {
	c := &combat.Combatant{
		ID:        id,
		Name:      id,
		Level:     1,
		Round:     1,
		Lives:     3,
		Base:      base,
		Equipment: inventory.NewEquipment(),
	}
	for _, d := range defs {
		if d.Kind == ability.KindSetBonus {
			c.SetBonuses = append(c.SetBonuses, ability.New(d))
		} else {
			c.Talents = append(c.Talents, ability.New(d))
		}
	}
	return c
}

// sturdy is a base block whose attacks are fully absorbed by the other sturdy fighter.
func sturdy(maxHp float64) stats.Block {
	return stats.Block{Strength: 5, Accuracy: 1, AttackSpeed: 1, MaxHp: maxHp, FlatDmgReduction: 1000}
}

func testSettings() combat.Settings {
	s := combat.DefaultSettings()
	s.Countdown = 0
	return s
}

func newSession(t testing.TB, rng dice.Source, reg *combat.Registry, opts ...func(*combat.Options)) (*combat.Session, *combat.Recorder) {
	t.Helper()
	rec := &combat.Recorder{}
	o := combat.Options{
		ID:       "test",
		Settings: testSettings(),
		Registry: reg,
		Sink:     rec,
		Rand:     rng,
		Logger:   zaptest.NewLogger(t),
	}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := combat.NewSession(o)
	require.NoError(t, err)
	return s, rec
}

func startFight(t testing.TB, s *combat.Session, player, opponent *combat.Combatant) {
	t.Helper()
	require.NoError(t, s.Load(player, opponent))
	s.Clock().Advance(0)
	require.Equal(t, combat.StateActive, s.State())
}

func ready(c, opponent *combat.Combatant) {
	combat.Recompute(c, opponent, zap.NewNop())
}

// fakeArena records behavior side effects without a session.
type fakeArena struct {
	dealt    []float64
	healed   float64
	poisoned int
	shield   time.Duration
}

func (f *fakeArena) DealDamage(_, target *combat.Combatant, amount float64, _ string) bool {
	f.dealt = append(f.dealt, amount)
	return target.TakeDamage(amount)
}

func (f *fakeArena) Heal(target *combat.Combatant, amount float64, _ string) float64 {
	n := target.Heal(amount)
	f.healed += n
	return n
}

func (f *fakeArena) ApplyPoison(_ *combat.Combatant, stacks int) { f.poisoned += stacks }

func (f *fakeArena) GrantInvincibility(target *combat.Combatant, d time.Duration) {
	target.Invincible = true
	f.shield = d
}

func (f *fakeArena) Now() time.Duration { return 0 }

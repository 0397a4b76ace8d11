package stats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

func TestNewAccumulator_NeutralSpeed(t *testing.T) {
	acc := stats.NewAccumulator()
	assert.Equal(t, 1.0, acc.AttackSpeed)
	assert.Equal(t, 0.0, stats.SpeedDelta(2, acc.AttackSpeed))
}

func TestSpeedDelta_UnsetIsNeutral(t *testing.T) {
	assert.Equal(t, 0.0, stats.SpeedDelta(1.5, 0))
	assert.InDelta(t, 0.3, stats.SpeedDelta(1.5, 1.2), 1e-9)
	assert.InDelta(t, -0.75, stats.SpeedDelta(1.5, 0.5), 1e-9)
}

func TestValidate_RejectsNonFinite(t *testing.T) {
	b := stats.Block{Strength: math.NaN()}
	err := b.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, stats.ErrMalformedBlock)
	assert.Contains(t, err.Error(), "strength")

	b = stats.Block{MaxHp: math.Inf(1)}
	assert.ErrorIs(t, b.Validate(), stats.ErrMalformedBlock)

	assert.NoError(t, stats.Block{Strength: 3, AttackSpeed: 1}.Validate())
}

func TestAddFlat_SkipsAttackSpeed(t *testing.T) {
	b := stats.Block{Strength: 1, AttackSpeed: 1}
	b.AddFlat(stats.Block{Strength: 2, Defense: 3, AttackSpeed: 5, MaxHp: 10})
	assert.Equal(t, 3.0, b.Strength)
	assert.Equal(t, 3.0, b.Defense)
	assert.Equal(t, 10.0, b.MaxHp)
	assert.Equal(t, 1.0, b.AttackSpeed)
}

func TestSetGet_ByName(t *testing.T) {
	var b stats.Block
	require.NoError(t, b.Set("dodge_rate", 12))
	v, err := b.Get("dodge_rate")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)
	assert.Error(t, b.Set("charisma", 1))
	_, err = b.Get("charisma")
	assert.Error(t, err)
}

func TestClamp_Property_Floors(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := stats.Block{
			Strength:    rapid.Float64Range(-100, 100).Draw(rt, "strength"),
			Accuracy:    rapid.Float64Range(-100, 100).Draw(rt, "accuracy"),
			Defense:     rapid.Float64Range(-100, 100).Draw(rt, "defense"),
			AttackSpeed: rapid.Float64Range(-5, 5).Draw(rt, "attack_speed"),
		}
		b.Clamp()
		assert.GreaterOrEqual(rt, b.Strength, stats.MinStrength)
		assert.GreaterOrEqual(rt, b.Accuracy, stats.MinAccuracy)
		assert.GreaterOrEqual(rt, b.Defense, stats.MinDefense)
		assert.GreaterOrEqual(rt, b.AttackSpeed, stats.MinAttackSpeed)
	})
}

func TestBlock_MapRoundTripsThroughSet(t *testing.T) {
	src := stats.Block{Strength: 3, AttackSpeed: 1.2, MaxHp: 80}
	var dst stats.Block
	for k, v := range src.Map() {
		require.NoError(t, dst.Set(k, v))
	}
	assert.Equal(t, src, dst)
	assert.Len(t, src.Map(), 9)
}

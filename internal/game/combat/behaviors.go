package combat

import (
	"math"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
)

// Built-in ability IDs.
const (
	Bloodlust     = 101
	Thorns        = 102
	VenomFang     = 103
	SecondWind    = 104
	Evasion       = 105
	Executioner   = 106
	Regeneration  = 107
	DivineShield  = 108
	FrostAura     = 109
	Fireball      = 110
	HealingLight  = 111
	Riposte       = 112
	Berserker     = 113
	IronSkin      = 114
	Vampirism     = 115
	Greed         = 116
	Scavenger     = 117
	CripplingBlow = 118
	Appraiser     = 119

	ViperSet   = 201
	BulwarkSet = 202
	ZephyrSet  = 203
	InfernoSet = 204
	PhoenixSet = 205
)

// DefaultRegistry returns a Registry holding every built-in behavior.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for id, b := range map[int]BehaviorFunc{
		Bloodlust:     bloodlust,
		Thorns:        thorns,
		VenomFang:     venomFang,
		SecondWind:    secondWind,
		Evasion:       evasion,
		Executioner:   executioner,
		Regeneration:  regeneration,
		DivineShield:  divineShield,
		FrostAura:     frostAura,
		Fireball:      fireball,
		HealingLight:  healingLight,
		Riposte:       riposte,
		Berserker:     berserker,
		IronSkin:      ironSkin,
		Vampirism:     vampirism,
		Greed:         greed,
		Scavenger:     scavenger,
		CripplingBlow: cripplingBlow,
		Appraiser:     appraiser,
		ViperSet:      viperSet,
		BulwarkSet:    bulwarkSet,
		ZephyrSet:     zephyrSet,
		InfernoSet:    infernoSet,
		PhoenixSet:    phoenixSet,
	} {
		r.MustRegister(id, b)
	}
	return r
}

// capAt limits v to limit; a zero limit means uncapped.
func capAt(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	return math.Min(v, limit)
}

// resetOnFightEnd reports whether ctx is FIGHT_END, resetting the ability if so.
func resetOnFightEnd(ctx *Context) bool {
	if ctx.Trigger != ability.FightEnd {
		return false
	}
	ctx.Ability.Reset()
	return true
}

// strike deals ability damage from ctx.Self to the opponent.
func strike(ctx *Context, amount float64) error {
	opp, err := ctx.RequireOpponent()
	if err != nil {
		return err
	}
	arena, err := ctx.RequireArena()
	if err != nil {
		return err
	}
	arena.DealDamage(ctx.Self, opp, amount, ctx.Ability.Def.Name)
	return nil
}

func heal(ctx *Context, amount float64) error {
	arena, err := ctx.RequireArena()
	if err != nil {
		return err
	}
	arena.Heal(ctx.Self, amount, ctx.Ability.Def.Name)
	return nil
}

func poison(ctx *Context, stacks int) error {
	opp, err := ctx.RequireOpponent()
	if err != nil {
		return err
	}
	arena, err := ctx.RequireArena()
	if err != nil {
		return err
	}
	arena.ApplyPoison(opp, stacks)
	return nil
}

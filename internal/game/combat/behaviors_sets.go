package combat

import "math"

func viperSet(ctx *Context) error {
	if !ctx.Chance(ctx.Ability.Def.Rate) {
		return nil
	}
	return poison(ctx, int(ctx.Ability.Def.Base))
}

func bulwarkSet(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	a := ctx.Ability
	a.Affected.Defense = a.Def.Base
	a.Affected.FlatDmgReduction = a.Def.Scaling
	return nil
}

func zephyrSet(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	a := ctx.Ability
	next := a.Affected.AttackSpeed + a.Def.Scaling
	if a.Def.Cap > 0 {
		next = math.Min(next, 1+a.Def.Cap)
	}
	a.Affected.AttackSpeed = next
	return nil
}

func infernoSet(ctx *Context) error {
	if !ctx.Chance(ctx.Ability.Def.Rate) {
		return nil
	}
	d := ctx.Ability.Def
	return strike(ctx, d.Base+d.Scaling*ctx.Self.Stats.Strength)
}

// phoenixSet turns the first lethal hit of the fight into a short invincibility and a heal.
func phoenixSet(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	dmg, err := ctx.RequireDamage()
	if err != nil {
		return err
	}
	a, self := ctx.Ability, ctx.Self
	if a.Charges > 0 || self.Invincible || self.HP <= 0 || self.HP-dmg > 0 {
		return nil
	}
	arena, err := ctx.RequireArena()
	if err != nil {
		return err
	}
	a.Charges++
	arena.GrantInvincibility(self, seconds(a.Def.Base))
	arena.Heal(self, a.Def.Scaling*self.Stats.MaxHp, a.Def.Name)
	ctx.Logf("%s rises from the ashes", self.Name)
	return nil
}

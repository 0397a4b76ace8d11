package combat

import (
	"math"
	"time"

	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

func bloodlust(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	a := ctx.Ability
	a.Affected.Strength = capAt(a.Affected.Strength+a.Def.Base, a.Def.Cap)
	return nil
}

func thorns(ctx *Context) error {
	dmg, err := ctx.RequireDamage()
	if err != nil {
		return err
	}
	d := ctx.Ability.Def
	return strike(ctx, d.Base+d.Scaling*dmg)
}

func venomFang(ctx *Context) error {
	if !ctx.Chance(ctx.Ability.Def.Rate) {
		return nil
	}
	return poison(ctx, 1)
}

func secondWind(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	dmg, err := ctx.RequireDamage()
	if err != nil {
		return err
	}
	a, self := ctx.Ability, ctx.Self
	if a.Charges > 0 || self.HP-dmg >= 0.3*self.Stats.MaxHp {
		return nil
	}
	a.Charges++
	ctx.Logf("%s catches a second wind", self.Name)
	return heal(ctx, a.Def.Base+a.Def.Scaling*self.Stats.MaxHp)
}

func evasion(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	ctx.Ability.Affected.DodgeRate = ctx.Ability.Def.Base
	return nil
}

// executioner forces the defender's hp to ExecuteSentinel when the pending hit
// leaves it at or below Base percent of max hp.
func executioner(ctx *Context) error {
	opp, err := ctx.RequireOpponent()
	if err != nil {
		return err
	}
	dmg, err := ctx.RequireDamage()
	if err != nil {
		return err
	}
	if opp.HP <= 0 {
		return nil
	}
	if opp.HP-dmg <= ctx.Ability.Def.Base/100*opp.Stats.MaxHp {
		opp.HP = ExecuteSentinel
		ctx.Logf("%s executes %s", ctx.Self.Name, opp.Name)
	}
	return nil
}

func regeneration(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	d := ctx.Ability.Def
	ctx.Ability.Affected.HpRegen = d.Base + d.Scaling*float64(ctx.Self.Level)
	return nil
}

func divineShield(ctx *Context) error {
	arena, err := ctx.RequireArena()
	if err != nil {
		return err
	}
	arena.GrantInvincibility(ctx.Self, seconds(ctx.Ability.Def.Base))
	ctx.Logf("%s is shielded", ctx.Self.Name)
	return nil
}

func frostAura(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	a := ctx.Ability
	floor := stats.MinSpeedMultiplier
	if a.Def.Cap > 0 {
		floor = math.Max(1-a.Def.Cap, floor)
	}
	a.AffectedEnemy.AttackSpeed = math.Max(a.AffectedEnemy.AttackSpeed-a.Def.Scaling, floor)
	return nil
}

func fireball(ctx *Context) error {
	d := ctx.Ability.Def
	return strike(ctx, d.Base+d.Scaling*float64(ctx.Self.Level))
}

func healingLight(ctx *Context) error {
	d := ctx.Ability.Def
	return heal(ctx, d.Base+d.Scaling*ctx.Self.Stats.MaxHp)
}

func riposte(ctx *Context) error {
	d := ctx.Ability.Def
	return strike(ctx, d.Base+d.Scaling*ctx.Self.Stats.Strength)
}

func berserker(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	a, self := ctx.Ability, ctx.Self
	if self.HP < 0.5*self.Stats.MaxHp {
		a.Affected.AttackSpeed = 1 + a.Def.Base
	} else {
		a.Affected.AttackSpeed = 1
	}
	return nil
}

func ironSkin(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	a := ctx.Ability
	a.Affected.Defense = capAt(a.Affected.Defense+a.Def.Base, a.Def.Cap)
	return nil
}

func vampirism(ctx *Context) error {
	dmg, err := ctx.RequireDamage()
	if err != nil {
		return err
	}
	return heal(ctx, ctx.Ability.Def.Scaling*dmg)
}

func greed(ctx *Context) error {
	ctx.Self.Gold += int(ctx.Ability.Def.Base)
	return nil
}

func scavenger(ctx *Context) error {
	pool, err := ctx.RequireQuestItems()
	if err != nil {
		return err
	}
	if len(pool) == 0 || !ctx.Chance(ctx.Ability.Def.Rate) {
		return nil
	}
	it := pool[dice.RangeInt(ctx.Rand, 0, len(pool)-1)]
	ctx.Self.AwardQuestItem(it.ID)
	ctx.Logf("%s found %s", ctx.Self.Name, it.Name)
	return nil
}

func cripplingBlow(ctx *Context) error {
	if resetOnFightEnd(ctx) {
		return nil
	}
	a := ctx.Ability
	next := a.AffectedEnemy.Strength - a.Def.Base
	if a.Def.Cap > 0 {
		next = math.Max(next, -a.Def.Cap)
	}
	a.AffectedEnemy.Strength = next
	return nil
}

func appraiser(ctx *Context) error {
	shop, err := ctx.RequireShop()
	if err != nil {
		return err
	}
	if len(shop) == 0 {
		return nil
	}
	cheapest := shop[0].Price
	for _, l := range shop[1:] {
		cheapest = min(cheapest, l.Price)
	}
	ctx.Self.Gold += cheapest / 2
	return nil
}

// seconds converts a catalog value in seconds to a Duration.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/scripting"
)

// ScriptRunner executes named Lua ability hooks.
type ScriptRunner interface {
	CallHook(hook string, call scripting.HookCall) (scripting.HookResult, error)
}

// RegisterScripts binds every definition that names a Script hook to runner.
//
// Precondition: runner must not be nil.
// Postcondition: Returns an error if a scripted ID already has a behavior.
func (r *Registry) RegisterScripts(defs []*ability.Definition, runner ScriptRunner) error {
	for _, d := range defs {
		if d.Script == "" {
			continue
		}
		if err := r.Register(d.ID, &scriptBehavior{hook: d.Script, runner: runner}); err != nil {
			return err
		}
	}
	return nil
}

// scriptBehavior translates a Context into a HookCall and applies the hook's
// writes and actions back through the session.
type scriptBehavior struct {
	hook   string
	runner ScriptRunner
}

func (b *scriptBehavior) Apply(ctx *Context) error {
	a := ctx.Ability
	call := scripting.HookCall{
		Trigger:       string(ctx.Trigger),
		AbilityID:     a.ID(),
		Rate:          a.Def.Rate,
		Base:          a.Def.Base,
		Scaling:       a.Def.Scaling,
		Cap:           a.Def.Cap,
		Charges:       a.Charges,
		Damage:        ctx.Damage,
		HasDamage:     ctx.HasDamage,
		Self:          combatantInfo(ctx.Self),
		Affected:      a.Affected.Map(),
		AffectedEnemy: a.AffectedEnemy.Map(),
		Rand:          ctx.Rand,
	}
	if ctx.Opponent != nil {
		info := combatantInfo(ctx.Opponent)
		call.Opponent = &info
	}

	res, err := b.runner.CallHook(b.hook, call)
	if err != nil {
		return err
	}

	var errs []error
	for name, v := range res.Affected {
		if err := a.Affected.Set(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	for name, v := range res.AffectedEnemy {
		if err := a.AffectedEnemy.Set(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	if res.ChargesSet {
		a.Charges = res.Charges
	}
	for _, act := range res.Actions {
		if err := b.perform(ctx, act); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("script %q: %w", b.hook, errors.Join(errs...))
	}
	return nil
}

func (b *scriptBehavior) perform(ctx *Context, act scripting.Action) error {
	switch act.Kind {
	case scripting.ActionLog:
		ctx.Logf("%s", act.Text)
		return nil
	case scripting.ActionDamage:
		return strike(ctx, act.Amount)
	case scripting.ActionHeal:
		return heal(ctx, act.Amount)
	case scripting.ActionPoison:
		return poison(ctx, int(act.Amount))
	case scripting.ActionGold:
		ctx.Self.Gold += int(act.Amount)
		return nil
	case scripting.ActionShield:
		arena, err := ctx.RequireArena()
		if err != nil {
			return err
		}
		arena.GrantInvincibility(ctx.Self, seconds(act.Amount))
		return nil
	default:
		return fmt.Errorf("unknown action %q", act.Kind)
	}
}

func combatantInfo(c *Combatant) scripting.CombatantInfo {
	return scripting.CombatantInfo{
		ID:          c.ID,
		Name:        c.Name,
		Level:       c.Level,
		HP:          c.HP,
		MaxHP:       c.Stats.MaxHp,
		PoisonStack: c.PoisonStack,
		Invincible:  c.Invincible,
		Stats:       c.Stats.Map(),
	}
}

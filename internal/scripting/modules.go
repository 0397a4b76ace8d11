package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/dice"
)

// RegisterModules registers the engine.* Lua functions into L.
//
// Effect functions (damage, heal, poison, gold, shield, log, set_affected,
// set_affected_enemy, set_charges) record into the in-flight HookResult and
// are no-ops outside CallHook. chance and roll draw from the call's
// source, or the Manager's roller when the call has none.
//
// Precondition: L must be from NewState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetGlobal("engine", engine)

	action := func(kind ActionKind) lua.LGFunction {
		return func(L *lua.LState) int {
			amount := float64(L.CheckNumber(1))
			if m.current != nil {
				m.current.Actions = append(m.current.Actions, Action{Kind: kind, Amount: amount})
			}
			return 0
		}
	}
	L.SetField(engine, "damage", L.NewFunction(action(ActionDamage)))
	L.SetField(engine, "heal", L.NewFunction(action(ActionHeal)))
	L.SetField(engine, "poison", L.NewFunction(action(ActionPoison)))
	L.SetField(engine, "gold", L.NewFunction(action(ActionGold)))
	L.SetField(engine, "shield", L.NewFunction(action(ActionShield)))

	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		if m.current != nil {
			m.current.Actions = append(m.current.Actions, Action{Kind: ActionLog, Text: text})
		}
		return 0
	}))

	setStat := func(enemy bool) lua.LGFunction {
		return func(L *lua.LState) int {
			name := L.CheckString(1)
			v := float64(L.CheckNumber(2))
			if m.current == nil {
				return 0
			}
			if enemy {
				m.current.AffectedEnemy[name] = v
			} else {
				m.current.Affected[name] = v
			}
			return 0
		}
	}
	L.SetField(engine, "set_affected", L.NewFunction(setStat(false)))
	L.SetField(engine, "set_affected_enemy", L.NewFunction(setStat(true)))

	L.SetField(engine, "set_charges", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if m.current != nil {
			m.current.Charges = n
			m.current.ChargesSet = true
		}
		return 0
	}))

	L.SetField(engine, "chance", L.NewFunction(func(L *lua.LState) int {
		p := float64(L.CheckNumber(1))
		L.Push(lua.LBool(p > 0 && m.source().Float64() < p))
		return 1
	}))

	L.SetField(engine, "roll", L.NewFunction(func(L *lua.LState) int {
		sides := L.CheckInt(1)
		if sides <= 0 {
			L.ArgError(1, "sides must be > 0")
			return 0
		}
		L.Push(lua.LNumber(m.source().Intn(sides) + 1))
		return 1
	}))

	L.SetField(engine, "debug", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
}

func (m *Manager) source() dice.Source {
	if m.rand != nil {
		return m.rand
	}
	return m.roller
}

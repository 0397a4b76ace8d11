package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/dice"
)

// ErrNotLoaded is returned by CallHook before Load has succeeded.
var ErrNotLoaded = errors.New("scripting: no scripts loaded")

// ErrHookNotFound is returned by CallHook when the named global function does not exist.
var ErrHookNotFound = errors.New("scripting: hook not found")

// CombatantInfo is a read-only view of a combatant passed to Lua hooks.
type CombatantInfo struct {
	ID          string
	Name        string
	Level       int
	HP          float64
	MaxHP       float64
	PoisonStack int
	Invincible  bool
	Stats       map[string]float64
}

// HookCall carries everything a scripted ability may read.
type HookCall struct {
	Trigger   string
	AbilityID int
	Rate      float64
	Base      float64
	Scaling   float64
	Cap       float64
	Charges   int
	Damage    float64
	HasDamage bool
	Self      CombatantInfo
	// Opponent is nil outside a fight's active phase.
	Opponent      *CombatantInfo
	Affected      map[string]float64
	AffectedEnemy map[string]float64
	// Rand serves engine.chance and engine.roll for this call; nil falls back
	// to the Manager's roller.
	Rand dice.Source
}

// ActionKind names a side effect requested by a hook.
type ActionKind string

const (
	ActionLog    ActionKind = "log"
	ActionDamage ActionKind = "damage"
	ActionHeal   ActionKind = "heal"
	ActionPoison ActionKind = "poison"
	ActionGold   ActionKind = "gold"
	ActionShield ActionKind = "shield"
)

// Action is one side effect requested through the engine.* Lua modules, in call order.
type Action struct {
	Kind   ActionKind
	Amount float64
	Text   string
}

// HookResult collects the writes and actions a hook performed.
//
// Affected and AffectedEnemy hold only the stats the hook assigned.
type HookResult struct {
	Affected      map[string]float64
	AffectedEnemy map[string]float64
	Charges       int
	ChargesSet    bool
	Actions       []Action
}

// Manager owns one sandboxed LState holding every ability script and exposes
// hook dispatch.
//
// Manager is safe for concurrent CallHook; calls are serialized because an
// LState is single-threaded.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger

	// current is the in-flight result the engine.* functions write into.
	current *HookResult
	// rand is the draw source of the in-flight call.
	rand dice.Source
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no scripts loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{roller: roller, logger: logger}
}

// Load creates a sandboxed VM, registers all engine.* modules, then executes
// every *.lua file in scriptDir in lexicographic order. A previously loaded VM
// is replaced only when the new one loads cleanly.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Returns error on Lua load failure, leaving the old VM in place.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewState(instLimit)
	m.RegisterModules(L)
	for _, path := range luaFiles {
		cancel := setBudget(L, instLimit)
		err := L.DoFile(path)
		cancel()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.L != nil {
		m.L.Close()
	}
	m.L = L
	m.instLimit = instLimit
	m.mu.Unlock()

	m.logger.Info("scripting: loaded ability scripts",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return false
	}
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function with a context table built from
// call. Each invocation gets a fresh instruction budget.
//
// Postcondition: Returns the collected writes and actions, ErrNotLoaded,
// ErrHookNotFound, or a wrapped Lua runtime error.
func (m *Manager) CallHook(hook string, call HookCall) (HookResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.L == nil {
		return HookResult{}, ErrNotLoaded
	}
	fn, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	if !ok {
		return HookResult{}, fmt.Errorf("%w: %q", ErrHookNotFound, hook)
	}

	res := HookResult{
		Affected:      map[string]float64{},
		AffectedEnemy: map[string]float64{},
		Charges:       call.Charges,
	}
	m.current = &res
	m.rand = call.Rand
	if m.rand == nil {
		m.rand = m.roller
	}
	defer func() { m.current, m.rand = nil, nil }()

	cancel := setBudget(m.L, m.instLimit)
	defer cancel()

	if err := m.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, m.contextTable(call)); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Int("ability", call.AbilityID),
			zap.Error(err),
		)
		return HookResult{}, fmt.Errorf("scripting: hook %q: %w", hook, err)
	}
	return res, nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

func (m *Manager) contextTable(call HookCall) *lua.LTable {
	L := m.L
	t := L.NewTable()
	t.RawSetString("trigger", lua.LString(call.Trigger))
	t.RawSetString("ability_id", lua.LNumber(call.AbilityID))
	t.RawSetString("rate", lua.LNumber(call.Rate))
	t.RawSetString("base", lua.LNumber(call.Base))
	t.RawSetString("scaling", lua.LNumber(call.Scaling))
	t.RawSetString("cap", lua.LNumber(call.Cap))
	t.RawSetString("charges", lua.LNumber(call.Charges))
	if call.HasDamage {
		t.RawSetString("damage", lua.LNumber(call.Damage))
	}
	t.RawSetString("self", m.combatantTable(call.Self))
	if call.Opponent != nil {
		t.RawSetString("opponent", m.combatantTable(*call.Opponent))
	}
	t.RawSetString("affected", m.statTable(call.Affected))
	t.RawSetString("affected_enemy", m.statTable(call.AffectedEnemy))
	return t
}

func (m *Manager) combatantTable(c CombatantInfo) *lua.LTable {
	t := m.L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("level", lua.LNumber(c.Level))
	t.RawSetString("hp", lua.LNumber(c.HP))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP))
	t.RawSetString("poison_stack", lua.LNumber(c.PoisonStack))
	t.RawSetString("invincible", lua.LBool(c.Invincible))
	t.RawSetString("stats", m.statTable(c.Stats))
	return t
}

func (m *Manager) statTable(stats map[string]float64) *lua.LTable {
	t := m.L.NewTable()
	for k, v := range stats {
		t.RawSetString(k, lua.LNumber(v))
	}
	return t
}

// Package scripting runs scripted ability hooks in a sandboxed GopherLua VM.
// It does not import combat: hook inputs and outputs are plain structs that
// the combat package translates.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one hook call when none is configured.
const DefaultInstructionLimit = 100_000

// blockedGlobals are base-library functions that reach the filesystem, load
// arbitrary chunks, or touch the collector.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "module"}

// safeLibs lists the only standard libraries opened in a sandboxed state.
var safeLibs = []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath}

// opBudget cancels itself once the VM has polled Done limit times. GopherLua
// polls Done once per opcode when a context is set.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// setBudget gives L a fresh budget of limit opcodes (DefaultInstructionLimit
// when limit <= 0).
//
// Postcondition: The next chunk or call on L fails once the budget is spent.
// The returned cancel releases the budget.
func setBudget(L *lua.LState, limit int) context.CancelFunc {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	base, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: base, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return cancel
}

// NewState returns a Lua state with only the base, table, string and math
// libraries, the loader and collector globals removed, and an initial budget
// of limit opcodes for loading scripts.
//
// Precondition: limit >= 0; 0 selects DefaultInstructionLimit.
// Postcondition: The caller owns the state and must Close it.
func NewState(limit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range safeLibs {
		open(L)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	_ = setBudget(L, limit)
	return L
}

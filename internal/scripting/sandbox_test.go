package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/autobattle/internal/scripting"
)

func TestNewState_Globals(t *testing.T) {
	L := scripting.NewState(0)
	defer L.Close()

	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), name)
	}
	for _, name := range []string{"math", "string", "table", "pairs", "tostring"} {
		assert.NotEqual(t, lua.LNil, L.GetGlobal(name), name)
	}
}

func TestNewState_AbilityArithmetic(t *testing.T) {
	L := scripting.NewState(0)
	defer L.Close()
	require.NoError(t, L.DoString(`result = math.floor(12 * 0.25) .. string.rep("!", 2)`))
	assert.Equal(t, "3!!", L.GetGlobal("result").String())
}

func TestNewState_BudgetStopsRunawayScripts(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 200).Draw(rt, "limit")
		L := scripting.NewState(limit)
		defer L.Close()
		assert.Error(rt, L.DoString(`local n = 0 while true do n = n + 1 end`))
	})
}

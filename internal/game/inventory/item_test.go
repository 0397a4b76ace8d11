package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/autobattle/internal/game/inventory"
	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

func TestLoadDirectory_ItemsAndQuestPool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.yaml"), []byte(`
items:
  - id: viper_fang
    name: Viper Fang
    slot: weapon
    price: 6
    set: viper
    stats: {strength: 3}
    set_stats: {attack_speed: 1.1}
  - id: old_map
    name: Old Map
    quest: true
`), 0644))

	cat, err := inventory.LoadDirectory(dir)
	require.NoError(t, err)

	it, ok := cat.Item("viper_fang")
	require.True(t, ok)
	assert.Equal(t, inventory.SlotWeapon, it.Slot)
	assert.Equal(t, 3.0, it.Stats.Strength)
	assert.Equal(t, 1.1, it.SetStats.AttackSpeed)

	quest := cat.QuestItems()
	require.Len(t, quest, 1)
	assert.Equal(t, "old_map", quest[0].ID)
	assert.Len(t, cat.Equippable(), 1)
}

func TestItem_Validate(t *testing.T) {
	assert.NoError(t, (&inventory.Item{ID: "a", Name: "A", Slot: inventory.SlotRing}).Validate())
	assert.NoError(t, (&inventory.Item{ID: "q", Name: "Q", Quest: true}).Validate())
	assert.Error(t, (&inventory.Item{ID: "a", Name: "A", Slot: "tail"}).Validate())
	assert.Error(t, (&inventory.Item{Name: "A", Slot: inventory.SlotRing}).Validate())
	assert.Error(t, (&inventory.Item{ID: "a", Name: "A", Slot: inventory.SlotRing, Price: -1}).Validate())
}

func TestCatalog_DuplicateRejected(t *testing.T) {
	cat := inventory.NewCatalog()
	it := &inventory.Item{ID: "a", Name: "A", Slot: inventory.SlotHead}
	require.NoError(t, cat.Register(it))
	assert.Error(t, cat.Register(it))
}

func TestEquipment_SetCountsAndOrder(t *testing.T) {
	eq := inventory.NewEquipment()
	require.NoError(t, eq.Equip(&inventory.Item{ID: "h", Slot: inventory.SlotHead, Set: "bulwark", Stats: stats.Block{Defense: 1}}))
	require.NoError(t, eq.Equip(&inventory.Item{ID: "c", Slot: inventory.SlotChest, Set: "bulwark"}))
	require.NoError(t, eq.Equip(&inventory.Item{ID: "w", Slot: inventory.SlotWeapon}))
	assert.Error(t, eq.Equip(&inventory.Item{ID: "q", Quest: true}))

	assert.Equal(t, map[string]int{"bulwark": 2}, eq.SetCounts())
	items := eq.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "h", "w"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, map[string]string{"head": "h", "chest": "c", "weapon": "w"}, eq.SlotIDs())

	// replacing a slot keeps one item per slot
	require.NoError(t, eq.Equip(&inventory.Item{ID: "h2", Slot: inventory.SlotHead}))
	assert.Equal(t, "h2", eq.Get(inventory.SlotHead).ID)
	assert.Equal(t, map[string]int{"bulwark": 1}, eq.SetCounts())
}

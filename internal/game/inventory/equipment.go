package inventory

import (
	"fmt"
	"sort"
)

// Equipment holds at most one item per slot.
// It is not safe for concurrent use.
type Equipment struct {
	slots map[Slot]*Item
}

// NewEquipment returns an empty Equipment.
func NewEquipment() *Equipment {
	return &Equipment{slots: make(map[Slot]*Item)}
}

// Equip places it in its slot, replacing any previous occupant.
//
// Precondition: it must not be nil.
// Postcondition: Returns an error for quest items; otherwise Get(it.Slot) == it.
func (e *Equipment) Equip(it *Item) error {
	if it.Quest {
		return fmt.Errorf("inventory: quest item %q cannot be equipped", it.ID)
	}
	e.slots[it.Slot] = it
	return nil
}

// Get returns the item in slot, or nil.
func (e *Equipment) Get(slot Slot) *Item {
	return e.slots[slot]
}

// Items returns the equipped items ordered by slot name so that aggregation
// order is stable.
func (e *Equipment) Items() []*Item {
	keys := make([]string, 0, len(e.slots))
	for s := range e.slots {
		keys = append(keys, string(s))
	}
	sort.Strings(keys)
	out := make([]*Item, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.slots[Slot(k)])
	}
	return out
}

// SetCounts returns the number of equipped pieces per set.
//
// Postcondition: items without a set are not counted.
func (e *Equipment) SetCounts() map[string]int {
	counts := make(map[string]int)
	for _, it := range e.slots {
		if it.Set != "" {
			counts[it.Set]++
		}
	}
	return counts
}

// SlotIDs returns the slot -> item ID mapping used by snapshots.
func (e *Equipment) SlotIDs() map[string]string {
	out := make(map[string]string, len(e.slots))
	for s, it := range e.slots {
		out[string(s)] = it.ID
	}
	return out
}

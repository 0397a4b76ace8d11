// Package inventory defines equipment items, equip slots, and the item catalog
// consumed by the combat engine.
package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

// Slot identifies an equipment slot.
type Slot string

const (
	SlotWeapon  Slot = "weapon"
	SlotHead    Slot = "head"
	SlotChest   Slot = "chest"
	SlotLegs    Slot = "legs"
	SlotBoots   Slot = "boots"
	SlotAmulet  Slot = "amulet"
	SlotRing    Slot = "ring"
	SlotTrinket Slot = "trinket"
)

var validSlots = map[Slot]bool{
	SlotWeapon: true, SlotHead: true, SlotChest: true, SlotLegs: true,
	SlotBoots: true, SlotAmulet: true, SlotRing: true, SlotTrinket: true,
}

// Item is the static definition of an equippable or quest item.
type Item struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Slot is empty for quest items, which are never equipped.
	Slot  Slot `yaml:"slot"`
	Price int  `yaml:"price"`
	// Set names the equipment set this item belongs to; empty when none.
	Set string `yaml:"set"`
	// Stats is always added to the wearer.
	Stats stats.Block `yaml:"stats"`
	// SetStats is added only while the item's set bonus is active.
	SetStats stats.Block `yaml:"set_stats"`
	Quest    bool        `yaml:"quest"`
}

// Validate checks that the item satisfies its invariants.
//
// Precondition: i is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (i *Item) Validate() error {
	var errs []error
	if i.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if i.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !i.Quest && !validSlots[i.Slot] {
		errs = append(errs, fmt.Errorf("slot %q is not a known equip slot", i.Slot))
	}
	if i.Price < 0 {
		errs = append(errs, errors.New("price must be >= 0"))
	}
	if err := i.Stats.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := i.SetStats.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %q validation failed: %w", i.ID, errors.Join(errs...))
	}
	return nil
}

// Catalog holds item definitions indexed by ID.
type Catalog struct {
	items map[string]*Item
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]*Item)}
}

// Register adds it to the catalog.
//
// Precondition: it must not be nil.
// Postcondition: Item(it.ID) returns it; returns error if invalid or already registered.
func (c *Catalog) Register(it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	if _, exists := c.items[it.ID]; exists {
		return fmt.Errorf("inventory: item ID %q already registered", it.ID)
	}
	c.items[it.ID] = it
	return nil
}

// Item returns the definition for id and whether it was found.
func (c *Catalog) Item(id string) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// QuestItems returns every quest item ordered by ID.
func (c *Catalog) QuestItems() []*Item {
	return c.filter(func(it *Item) bool { return it.Quest })
}

// Equippable returns every non-quest item ordered by ID.
func (c *Catalog) Equippable() []*Item {
	return c.filter(func(it *Item) bool { return !it.Quest })
}

func (c *Catalog) filter(keep func(*Item) bool) []*Item {
	out := make([]*Item, 0, len(c.items))
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type itemFile struct {
	Items []*Item `yaml:"items"`
}

// LoadDirectory reads all *.yaml files from dir into a Catalog.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns a populated Catalog or the first encountered error.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading item dir %q: %w", dir, err)
	}
	cat := NewCatalog()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var f itemFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, it := range f.Items {
			if err := cat.Register(it); err != nil {
				return nil, fmt.Errorf("%q: %w", path, err)
			}
		}
	}
	return cat, nil
}

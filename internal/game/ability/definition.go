// Package ability holds the static ability catalog (talents and set bonuses)
// and the per-fight ability instances built from it.
package ability

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes talents from equipment set bonuses.
type Kind string

const (
	KindTalent   Kind = "talent"
	KindSetBonus Kind = "set_bonus"
)

// Definition is the static catalog entry for one ability.
type Definition struct {
	ID          int       `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Kind        Kind      `yaml:"kind"`
	Rate        float64   `yaml:"rate"`    // proc chance, or activations per second for ACTIVE
	Base        float64   `yaml:"base"`    // flat magnitude
	Scaling     float64   `yaml:"scaling"` // magnitude per level / per point of the scaled stat
	Cap         float64   `yaml:"cap"`     // accumulator ceiling; 0 = uncapped
	Tags        []Trigger `yaml:"tags"`
	// Set is the equipment set this bonus belongs to; empty for talents.
	Set string `yaml:"set"`
	// Pieces is the number of equipped set items required to activate a set bonus.
	Pieces int `yaml:"pieces"`
	// Script names a Lua hook that implements this ability instead of a built-in behavior.
	Script string `yaml:"script"`
}

// HasTag reports whether the definition subscribes to t.
func (d *Definition) HasTag(t Trigger) bool {
	for _, tag := range d.Tags {
		if tag == t {
			return true
		}
	}
	return false
}

// Validate checks catalog invariants.
//
// Precondition: d must not be nil.
// Postcondition: Returns nil iff ID > 0, Name is non-empty, Kind is known,
// Rate >= 0, and ACTIVE abilities have Rate > 0.
func (d *Definition) Validate() error {
	if d.ID <= 0 {
		return fmt.Errorf("ability: id must be > 0, got %d", d.ID)
	}
	if d.Name == "" {
		return fmt.Errorf("ability %d: name must not be empty", d.ID)
	}
	switch d.Kind {
	case KindTalent:
	case KindSetBonus:
		if d.Set == "" {
			return fmt.Errorf("ability %d: set bonus must name its set", d.ID)
		}
	default:
		return fmt.Errorf("ability %d: unknown kind %q", d.ID, d.Kind)
	}
	if d.Rate < 0 {
		return fmt.Errorf("ability %d: rate must be >= 0", d.ID)
	}
	if d.HasTag(Active) && d.Rate <= 0 {
		return fmt.Errorf("ability %d: ACTIVE abilities need rate > 0", d.ID)
	}
	return nil
}

// Catalog holds all known ability definitions keyed by ID.
type Catalog struct {
	defs map[int]*Definition
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[int]*Definition)}
}

// Register adds def to the catalog.
//
// Precondition: def must not be nil.
// Postcondition: Returns an error if def is invalid or def.ID is already registered.
func (c *Catalog) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := c.defs[def.ID]; exists {
		return fmt.Errorf("ability: id %d already registered", def.ID)
	}
	c.defs[def.ID] = def
	return nil
}

// Get returns the definition for id, or (nil, false) if not found.
func (c *Catalog) Get(id int) (*Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// All returns every definition ordered by ID.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetBonusFor returns the set-bonus definition for the named equipment set.
func (c *Catalog) SetBonusFor(set string) (*Definition, bool) {
	for _, d := range c.defs {
		if d.Kind == KindSetBonus && d.Set == set {
			return d, true
		}
	}
	return nil, false
}

type catalogFile struct {
	Abilities []*Definition `yaml:"abilities"`
}

// LoadDirectory reads every *.yaml file in dir and returns a populated Catalog.
// Each file holds an `abilities:` list.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Catalog, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
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
		var f catalogFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, def := range f.Abilities {
			if err := cat.Register(def); err != nil {
				return nil, fmt.Errorf("%q: %w", path, err)
			}
		}
	}
	return cat, nil
}

package character

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

// BaselineID identifies the round-0 opponent used when no recorded opponent exists.
const BaselineID = "baseline"

// Baseline returns the round-0 training opponent: no items, no abilities.
//
// Postcondition: Returns a fresh, valid Snapshot on every call.
func Baseline() *Snapshot {
	return &Snapshot{
		ID:    BaselineID,
		Name:  "Training Dummy",
		Level: 1,
		Round: 0,
		Lives: 1,
		Base: stats.Block{
			Strength:    4,
			Accuracy:    1,
			AttackSpeed: 0.8,
			MaxHp:       60,
		},
		Equipment: map[string]string{},
	}
}

type snapshotFile struct {
	Combatants []*Snapshot `yaml:"combatants"`
}

// LoadSnapshots parses a YAML file holding a `combatants:` list.
//
// Precondition: path must be a readable file.
// Postcondition: Returns validated snapshots or the first error.
func LoadSnapshots(path string) ([]*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	var f snapshotFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	for _, s := range f.Combatants {
		if s.Equipment == nil {
			s.Equipment = map[string]string{}
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}
	}
	return f.Combatants, nil
}

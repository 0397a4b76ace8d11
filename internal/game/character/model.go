// Package character defines the persisted combatant snapshot exchanged with
// the storage layer.
package character

import (
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

// ErrNotFound is returned by snapshot stores when no record matches.
var ErrNotFound = errors.New("combatant snapshot not found")

// Snapshot is a combatant's persistent state.
//
// Equipment maps slot name to item ID; Talents and ActiveSetBonuses are
// ordered ability IDs (acquisition order). QuestItems lists awarded quest item IDs.
type Snapshot struct {
	ID               string            `yaml:"id" json:"id"`
	Name             string            `yaml:"name" json:"name"`
	Level            int               `yaml:"level" json:"level"`
	Round            int               `yaml:"round" json:"round"`
	Lives            int               `yaml:"lives" json:"lives"`
	Wins             int               `yaml:"wins" json:"wins"`
	Gold             int               `yaml:"gold" json:"gold"`
	XP               int               `yaml:"xp" json:"xp"`
	Base             stats.Block       `yaml:"base" json:"base"`
	Equipment        map[string]string `yaml:"equipment" json:"equipment"`
	Talents          []int             `yaml:"talents" json:"talents"`
	ActiveSetBonuses []int             `yaml:"active_set_bonuses" json:"active_set_bonuses"`
	QuestItems       []string          `yaml:"quest_items" json:"quest_items"`

	UpdatedAt time.Time `yaml:"-" json:"-"`
}

// Validate checks snapshot invariants.
//
// Precondition: s must not be nil.
// Postcondition: Returns nil iff ID is non-empty, Level >= 1, Round >= 0,
// Gold >= 0, base MaxHp > 0, base AttackSpeed > 0 and Base is finite.
func (s *Snapshot) Validate() error {
	if s.ID == "" {
		return errors.New("snapshot: id must not be empty")
	}
	if s.Level < 1 {
		return fmt.Errorf("snapshot %q: level must be >= 1", s.ID)
	}
	if s.Round < 0 {
		return fmt.Errorf("snapshot %q: round must be >= 0", s.ID)
	}
	if s.Gold < 0 {
		return fmt.Errorf("snapshot %q: gold must be >= 0", s.ID)
	}
	if s.Base.MaxHp <= 0 {
		return fmt.Errorf("snapshot %q: base max_hp must be > 0", s.ID)
	}
	if s.Base.AttackSpeed <= 0 {
		return fmt.Errorf("snapshot %q: base attack_speed must be > 0", s.ID)
	}
	if err := s.Base.Validate(); err != nil {
		return fmt.Errorf("snapshot %q: %w", s.ID, err)
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Equipment = make(map[string]string, len(s.Equipment))
	for k, v := range s.Equipment {
		out.Equipment[k] = v
	}
	out.Talents = append([]int(nil), s.Talents...)
	out.ActiveSetBonuses = append([]int(nil), s.ActiveSetBonuses...)
	out.QuestItems = append([]string(nil), s.QuestItems...)
	return &out
}

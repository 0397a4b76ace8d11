// Package stats defines the stat block shared by base stats, item bonuses and
// per-fight ability accumulators.
package stats

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedBlock is returned by Validate when a block holds a non-finite value.
var ErrMalformedBlock = errors.New("stats: malformed block")

// Floors applied to derived stats after every aggregation.
const (
	MinStrength    = 1.0
	MinAccuracy    = 1.0
	MinDefense     = 0.0
	MinAttackSpeed = 0.1
	// MinSpeedMultiplier is the strongest slow a contribution may apply; a
	// zero multiplier reads as unset.
	MinSpeedMultiplier = 0.01
)

// Block is one set of combat stats.
//
// On a base block AttackSpeed is attacks per second. On a contribution block
// (item stats, set-bonus stats, ability accumulators) AttackSpeed is a
// multiplier: 1.0 is neutral and 0 means unset.
type Block struct {
	Strength         float64 `yaml:"strength" json:"strength"`
	Accuracy         float64 `yaml:"accuracy" json:"accuracy"`
	Defense          float64 `yaml:"defense" json:"defense"`
	AttackSpeed      float64 `yaml:"attack_speed" json:"attack_speed"`
	DodgeRate        float64 `yaml:"dodge_rate" json:"dodge_rate"`
	FlatDmgReduction float64 `yaml:"flat_dmg_reduction" json:"flat_dmg_reduction"`
	Income           float64 `yaml:"income" json:"income"`
	HpRegen          float64 `yaml:"hp_regen" json:"hp_regen"`
	MaxHp            float64 `yaml:"max_hp" json:"max_hp"`
}

// NewAccumulator returns an empty contribution block with a neutral attack-speed multiplier.
//
// Postcondition: every additive field is 0 and AttackSpeed == 1.
func NewAccumulator() Block {
	return Block{AttackSpeed: 1}
}

// Validate reports whether every field is a finite number.
//
// Postcondition: Returns nil, or an error wrapping ErrMalformedBlock naming the first bad field.
func (b Block) Validate() error {
	for _, f := range b.fields() {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s=%v", ErrMalformedBlock, f.name, f.value)
		}
	}
	return nil
}

// AddFlat adds every additive field of c onto b. AttackSpeed is left untouched;
// use SpeedDelta for the multiplier.
func (b *Block) AddFlat(c Block) {
	b.Strength += c.Strength
	b.Accuracy += c.Accuracy
	b.Defense += c.Defense
	b.DodgeRate += c.DodgeRate
	b.FlatDmgReduction += c.FlatDmgReduction
	b.Income += c.Income
	b.HpRegen += c.HpRegen
	b.MaxHp += c.MaxHp
}

// SpeedDelta converts an attack-speed multiplier into an additive delta against
// baseSpeed. An unset (zero) multiplier contributes nothing.
//
// Postcondition: Returns baseSpeed*(multiplier-1), or 0 when multiplier == 0.
func SpeedDelta(baseSpeed, multiplier float64) float64 {
	if multiplier == 0 {
		return 0
	}
	return baseSpeed * (multiplier - 1)
}

// Clamp applies the derived-stat floors.
//
// Postcondition: Strength >= 1, Accuracy >= 1, Defense >= 0, AttackSpeed >= 0.1.
func (b *Block) Clamp() {
	b.Strength = math.Max(b.Strength, MinStrength)
	b.Accuracy = math.Max(b.Accuracy, MinAccuracy)
	b.Defense = math.Max(b.Defense, MinDefense)
	b.AttackSpeed = math.Max(b.AttackSpeed, MinAttackSpeed)
}

type field struct {
	name  string
	value float64
}

func (b Block) fields() []field {
	return []field{
		{"strength", b.Strength},
		{"accuracy", b.Accuracy},
		{"defense", b.Defense},
		{"attack_speed", b.AttackSpeed},
		{"dodge_rate", b.DodgeRate},
		{"flat_dmg_reduction", b.FlatDmgReduction},
		{"income", b.Income},
		{"hp_regen", b.HpRegen},
		{"max_hp", b.MaxHp},
	}
}

// Map returns every field keyed by its snake_case name.
func (b Block) Map() map[string]float64 {
	out := make(map[string]float64, 9)
	for _, f := range b.fields() {
		out[f.name] = f.value
	}
	return out
}

// Set assigns the named field. It is used by scripted abilities that address
// stats by name.
//
// Postcondition: Returns an error if name is not a known stat.
func (b *Block) Set(name string, v float64) error {
	p := b.ptr(name)
	if p == nil {
		return fmt.Errorf("stats: unknown stat %q", name)
	}
	*p = v
	return nil
}

// Get returns the named field.
func (b *Block) Get(name string) (float64, error) {
	p := b.ptr(name)
	if p == nil {
		return 0, fmt.Errorf("stats: unknown stat %q", name)
	}
	return *p, nil
}

func (b *Block) ptr(name string) *float64 {
	switch name {
	case "strength":
		return &b.Strength
	case "accuracy":
		return &b.Accuracy
	case "defense":
		return &b.Defense
	case "attack_speed":
		return &b.AttackSpeed
	case "dodge_rate":
		return &b.DodgeRate
	case "flat_dmg_reduction":
		return &b.FlatDmgReduction
	case "income":
		return &b.Income
	case "hp_regen":
		return &b.HpRegen
	case "max_hp":
		return &b.MaxHp
	}
	return nil
}

package ability

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Trigger is a tag naming a combat event that abilities subscribe to.
type Trigger string

const (
	FightStart   Trigger = "FIGHT_START"
	FightEnd     Trigger = "FIGHT_END"
	OnAttack     Trigger = "ON_ATTACK"
	OnAttacked   Trigger = "ON_ATTACKED"
	OnDamage     Trigger = "ON_DAMAGE"
	OnDealDamage Trigger = "ON_DEAL_DAMAGE"
	OnDodge      Trigger = "ON_DODGE"
	Aura         Trigger = "AURA"
	Active       Trigger = "ACTIVE"
	LevelUp      Trigger = "LEVEL_UP"
)

var knownTriggers = map[Trigger]bool{
	FightStart: true, FightEnd: true, OnAttack: true, OnAttacked: true,
	OnDamage: true, OnDealDamage: true, OnDodge: true, Aura: true,
	Active: true, LevelUp: true,
}

// ParseTrigger converts a catalog tag into a Trigger. Matching is case-insensitive.
//
// Postcondition: Returns a known Trigger or an error.
func ParseTrigger(s string) (Trigger, error) {
	t := Trigger(strings.ToUpper(strings.TrimSpace(s)))
	if !knownTriggers[t] {
		return "", fmt.Errorf("ability: unknown trigger %q", s)
	}
	return t, nil
}

// UnmarshalYAML validates trigger tags while decoding catalog files.
func (t *Trigger) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseTrigger(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

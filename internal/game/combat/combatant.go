package combat

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/character"
	"github.com/cory-johannsen/autobattle/internal/game/clock"
	"github.com/cory-johannsen/autobattle/internal/game/inventory"
	"github.com/cory-johannsen/autobattle/internal/game/stats"
)

// MaxPoisonStack is the poison stack ceiling.
const MaxPoisonStack = 100

// Combatant is one fighter for the lifetime of a single session.
//
// Stats holds the derived stats written by Recompute; Base is never mutated.
// HP is bounded above by Stats.MaxHp and unbounded below: hp <= 0 is the
// death signal.
type Combatant struct {
	ID    string
	Name  string
	Level int
	Round int
	Lives int
	Wins  int
	Gold  int
	XP    int

	Base       stats.Block
	Equipment  *inventory.Equipment
	Talents    []*ability.Ability
	SetBonuses []*ability.Ability
	Stats      stats.Block
	HP         float64

	PoisonStack int
	Invincible  bool
	QuestItems  []string

	initialized bool

	attackTimer     *clock.Timer
	regenTimer      *clock.Timer
	poisonTimer     *clock.Timer
	invincibleTimer *clock.Timer
}

// NewCombatant builds a fight-ready combatant from snap, resolving equipment
// and ability IDs against the catalogs. Every ability instance is fresh.
//
// Precondition: snap, abilities and items must be non-nil.
// Postcondition: Returns an error if snap is invalid or references an unknown item or ability.
func NewCombatant(snap *character.Snapshot, abilities *ability.Catalog, items *inventory.Catalog) (*Combatant, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	c := &Combatant{
		ID:         snap.ID,
		Name:       snap.Name,
		Level:      snap.Level,
		Round:      snap.Round,
		Lives:      snap.Lives,
		Wins:       snap.Wins,
		Gold:       snap.Gold,
		XP:         snap.XP,
		Base:       snap.Base,
		Equipment:  inventory.NewEquipment(),
		QuestItems: append([]string(nil), snap.QuestItems...),
	}
	for slot, id := range snap.Equipment {
		it, ok := items.Item(id)
		if !ok {
			return nil, fmt.Errorf("combatant %q: unknown item %q in slot %q", snap.ID, id, slot)
		}
		if string(it.Slot) != slot {
			return nil, fmt.Errorf("combatant %q: item %q does not fit slot %q", snap.ID, id, slot)
		}
		if err := c.Equipment.Equip(it); err != nil {
			return nil, fmt.Errorf("combatant %q: %w", snap.ID, err)
		}
	}
	for _, id := range snap.Talents {
		def, ok := abilities.Get(id)
		if !ok || def.Kind != ability.KindTalent {
			return nil, fmt.Errorf("combatant %q: unknown talent %d", snap.ID, id)
		}
		c.Talents = append(c.Talents, ability.New(def))
	}
	for _, id := range snap.ActiveSetBonuses {
		def, ok := abilities.Get(id)
		if !ok || def.Kind != ability.KindSetBonus {
			return nil, fmt.Errorf("combatant %q: unknown set bonus %d", snap.ID, id)
		}
		c.SetBonuses = append(c.SetBonuses, ability.New(def))
	}
	return c, nil
}

// Abilities returns talents followed by active set bonuses, each in acquisition order.
//
// Postcondition: Returns a new slice; callers may iterate it while behaviors run.
func (c *Combatant) Abilities() []*ability.Ability {
	out := make([]*ability.Ability, 0, len(c.Talents)+len(c.SetBonuses))
	out = append(out, c.Talents...)
	return append(out, c.SetBonuses...)
}

// SetActive reports whether the combatant holds the set bonus for the named set.
func (c *Combatant) SetActive(set string) bool {
	for _, a := range c.SetBonuses {
		if a.Def.Set == set {
			return true
		}
	}
	return false
}

// Defeated reports whether the combatant loses at the next termination check.
//
// Postcondition: Returns true iff hp <= 0 and the combatant is not invincible.
func (c *Combatant) Defeated() bool { return c.HP <= 0 && !c.Invincible }

// TakeDamage subtracts amount from hp.
//
// Postcondition: Returns false without change if amount <= 0, the combatant is
// invincible, or hp is already <= 0.
func (c *Combatant) TakeDamage(amount float64) bool {
	if amount <= 0 || c.Invincible || c.HP <= 0 {
		return false
	}
	c.HP -= amount
	return true
}

// Heal adds amount to hp, capped at MaxHp.
//
// Postcondition: Returns the hp actually restored; 0 when amount <= 0 or hp <= 0.
func (c *Combatant) Heal(amount float64) float64 {
	if amount <= 0 || c.HP <= 0 {
		return 0
	}
	before := c.HP
	c.HP = math.Min(c.HP+amount, c.Stats.MaxHp)
	return math.Max(c.HP-before, 0)
}

// AddPoison raises the poison stack by n, clamped to [0, MaxPoisonStack].
//
// Postcondition: Returns the number of stacks actually added.
func (c *Combatant) AddPoison(n int) int {
	before := c.PoisonStack
	c.PoisonStack = min(max(c.PoisonStack+n, 0), MaxPoisonStack)
	return c.PoisonStack - before
}

// Poisoned reports whether the poison timer is running.
func (c *Combatant) Poisoned() bool { return c.poisonTimer.Active() }

// AwardQuestItem records a quest item won during the fight.
func (c *Combatant) AwardQuestItem(id string) {
	c.QuestItems = append(c.QuestItems, id)
}

// Terminal returns the combatant's persistent state.
//
// Postcondition: Returns a new Snapshot; derived stats and hp are not persisted.
func (c *Combatant) Terminal() *character.Snapshot {
	snap := &character.Snapshot{
		ID:         c.ID,
		Name:       c.Name,
		Level:      c.Level,
		Round:      c.Round,
		Lives:      c.Lives,
		Wins:       c.Wins,
		Gold:       c.Gold,
		XP:         c.XP,
		Base:       c.Base,
		Equipment:  c.Equipment.SlotIDs(),
		QuestItems: append([]string(nil), c.QuestItems...),
	}
	for _, a := range c.Talents {
		snap.Talents = append(snap.Talents, a.ID())
	}
	for _, a := range c.SetBonuses {
		snap.ActiveSetBonuses = append(snap.ActiveSetBonuses, a.ID())
	}
	return snap
}

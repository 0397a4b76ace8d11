package combat

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/clock"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/game/inventory"
)

// ErrMissingContextField is returned by the Require* accessors when a behavior
// needs a field the current trigger did not supply.
var ErrMissingContextField = errors.New("combat: missing context field")

// ShopListing is one item offered in the current shop.
type ShopListing struct {
	ItemID string
	Price  int
}

// Arena is the set of session actions available to behaviors.
type Arena interface {
	// DealDamage dispatches ON_DAMAGE on target for amount, then applies it.
	// It reports whether hp changed.
	DealDamage(source, target *Combatant, amount float64, cause string) bool
	// Heal restores up to amount hp and returns the amount restored.
	Heal(target *Combatant, amount float64, cause string) float64
	// ApplyPoison adds stacks of poison to target.
	ApplyPoison(target *Combatant, stacks int)
	// GrantInvincibility makes target immune to damage for d.
	GrantInvincibility(target *Combatant, d time.Duration)
	// Now returns the elapsed time since the fight started.
	Now() time.Duration
}

// Context is the per-invocation input of a Behavior. A fresh copy is stamped
// with Ability and Trigger for every invocation and never retained.
type Context struct {
	Self *Combatant
	// Opponent is nil outside the fight (e.g. LEVEL_UP from the shop phase).
	Opponent *Combatant
	Sink     Sink
	Timers   *clock.Group
	Trigger  ability.Trigger
	// Damage is the mitigated damage of the current hit; valid when HasDamage.
	Damage    float64
	HasDamage bool
	Ability   *ability.Ability

	Shop       []ShopListing
	QuestItems []*inventory.Item

	Dispatcher *Dispatcher
	Arena      Arena
	Rand       dice.Source
	Logger     *zap.Logger
}

// RequireOpponent returns the opponent or ErrMissingContextField.
func (c *Context) RequireOpponent() (*Combatant, error) {
	if c.Opponent == nil {
		return nil, c.missing("opponent")
	}
	return c.Opponent, nil
}

// RequireDamage returns the damage value or ErrMissingContextField.
func (c *Context) RequireDamage() (float64, error) {
	if !c.HasDamage {
		return 0, c.missing("damage")
	}
	return c.Damage, nil
}

// RequireQuestItems returns the quest item pool or ErrMissingContextField.
func (c *Context) RequireQuestItems() ([]*inventory.Item, error) {
	if c.QuestItems == nil {
		return nil, c.missing("quest items")
	}
	return c.QuestItems, nil
}

// RequireShop returns the shop listing or ErrMissingContextField.
func (c *Context) RequireShop() ([]ShopListing, error) {
	if c.Shop == nil {
		return nil, c.missing("shop")
	}
	return c.Shop, nil
}

// RequireArena returns the session actions or ErrMissingContextField.
func (c *Context) RequireArena() (Arena, error) {
	if c.Arena == nil {
		return nil, c.missing("arena")
	}
	return c.Arena, nil
}

func (c *Context) missing(field string) error {
	id := 0
	if c.Ability != nil {
		id = c.Ability.ID()
	}
	return fmt.Errorf("%w: %s (ability %d, trigger %s)", ErrMissingContextField, field, id, c.Trigger)
}

// Logf emits a combat_log event.
func (c *Context) Logf(format string, args ...any) {
	if c.Sink == nil {
		return
	}
	c.Sink.Emit(Event{Type: EventCombatLog, Message: fmt.Sprintf(format, args...)})
}

// Chance reports whether a draw from c.Rand falls below p.
func (c *Context) Chance(p float64) bool {
	if c.Rand == nil {
		return false
	}
	return dice.Chance(c.Rand, p)
}

// Cascade synchronously dispatches trigger on target's abilities, with the
// acting combatant as target's opponent. It returns the number of successful
// invocations.
//
// Precondition: c.Dispatcher must not be nil.
func (c *Context) Cascade(trigger ability.Trigger, target *Combatant, damage float64, hasDamage bool) int {
	next := *c
	next.Self = target
	next.Opponent = c.Self
	if target == c.Self {
		next.Opponent = c.Opponent
	}
	next.Damage = damage
	next.HasDamage = hasDamage
	return c.Dispatcher.Dispatch(trigger, &next)
}

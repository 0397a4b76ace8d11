package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
)

// DefaultMaxDispatchDepth bounds nested dispatches when no limit is configured.
const DefaultMaxDispatchDepth = 8

// Dispatcher fans a trigger out to the subscribed abilities of ctx.Self.
//
// A Dispatcher belongs to one session and is driven from that session's
// goroutine only.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
	maxDepth int
	depth    int
}

// NewDispatcher creates a Dispatcher over registry.
//
// Precondition: registry and logger must be non-nil.
// Postcondition: maxDepth <= 0 selects DefaultMaxDispatchDepth.
func NewDispatcher(registry *Registry, logger *zap.Logger, maxDepth int) *Dispatcher {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDispatchDepth
	}
	return &Dispatcher{registry: registry, logger: logger, maxDepth: maxDepth}
}

// Dispatch invokes every ability of ctx.Self whose tags contain trigger, in
// talent-then-set-bonus acquisition order. Each invocation receives a copy of
// ctx stamped with its ability and trigger. A failing behavior (returned error
// or panic) is logged and skipped; the remaining abilities still run. Nested
// dispatches run to completion before the caller resumes.
//
// Precondition: ctx.Self must not be nil.
// Postcondition: Returns the number of invocations that completed without error.
func (d *Dispatcher) Dispatch(trigger ability.Trigger, ctx *Context) int {
	if !d.enter(trigger, ctx) {
		return 0
	}
	defer func() { d.depth-- }()

	ok := 0
	for _, a := range ctx.Self.Abilities() {
		if a.HasTag(trigger) && d.run(a, trigger, ctx) {
			ok++
		}
	}
	return ok
}

// Invoke runs a single ability for trigger, with the same isolation and
// depth bound as Dispatch. Per-ability timers (AURA, ACTIVE) use it.
//
// Postcondition: Returns true iff the behavior completed without error.
func (d *Dispatcher) Invoke(a *ability.Ability, trigger ability.Trigger, ctx *Context) bool {
	if !d.enter(trigger, ctx) {
		return false
	}
	defer func() { d.depth-- }()
	return d.run(a, trigger, ctx)
}

func (d *Dispatcher) enter(trigger ability.Trigger, ctx *Context) bool {
	if d.depth >= d.maxDepth {
		d.logger.Warn("dispatch depth exceeded",
			zap.String("trigger", string(trigger)),
			zap.String("combatant", ctx.Self.ID),
			zap.Int("depth", d.depth),
		)
		return false
	}
	d.depth++
	return true
}

func (d *Dispatcher) run(a *ability.Ability, trigger ability.Trigger, ctx *Context) bool {
	inv := *ctx
	inv.Ability = a
	inv.Trigger = trigger
	inv.Dispatcher = d
	if err := d.invoke(&inv); err != nil {
		d.logger.Warn("ability invocation failed",
			zap.String("trigger", string(trigger)),
			zap.String("combatant", ctx.Self.ID),
			zap.Int("ability", a.ID()),
			zap.Error(err),
		)
		return false
	}
	if ctx.Sink != nil {
		typ := EventTriggerTalent
		if a.IsSetBonus() {
			typ = EventTriggerCollection
		}
		ctx.Sink.Emit(Event{Type: typ, CombatantID: ctx.Self.ID, AbilityID: a.ID(), Trigger: trigger})
	}
	return true
}

func (d *Dispatcher) invoke(ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("combat: ability %d panicked: %v", ctx.Ability.ID(), r)
		}
	}()
	return d.registry.Invoke(ctx)
}

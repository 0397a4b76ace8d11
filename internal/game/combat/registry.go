package combat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
)

// ErrBehaviorNotFound is returned by Invoke when no behavior is registered for an ability.
var ErrBehaviorNotFound = errors.New("combat: behavior not found")

// Behavior is the effect of one ability. A single behavior serves every
// trigger its ability subscribes to and branches on ctx.Trigger.
type Behavior interface {
	Apply(ctx *Context) error
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(ctx *Context) error

// Apply calls f(ctx).
func (f BehaviorFunc) Apply(ctx *Context) error { return f(ctx) }

// Registry maps ability IDs to behaviors. It is populated at startup and
// read-only afterwards.
type Registry struct {
	behaviors map[int]Behavior
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: make(map[int]Behavior)}
}

// Register binds b to ability id.
//
// Precondition: b must not be nil.
// Postcondition: Returns an error if id already has a behavior.
func (r *Registry) Register(id int, b Behavior) error {
	if _, exists := r.behaviors[id]; exists {
		return fmt.Errorf("combat: behavior for ability %d already registered", id)
	}
	r.behaviors[id] = b
	return nil
}

// MustRegister is Register for registries built at startup.
//
// Postcondition: Panics if id is already registered.
func (r *Registry) MustRegister(id int, b Behavior) {
	if err := r.Register(id, b); err != nil {
		panic(fmt.Sprintf("building behavior registry: %v", err))
	}
}

// Lookup returns the behavior for id.
func (r *Registry) Lookup(id int) (Behavior, bool) {
	b, ok := r.behaviors[id]
	return b, ok
}

// IDs returns every registered ability ID in ascending order.
func (r *Registry) IDs() []int {
	out := make([]int, 0, len(r.behaviors))
	for id := range r.behaviors {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Invoke runs the behavior bound to ctx.Ability.
//
// Precondition: ctx.Ability must not be nil.
// Postcondition: Returns an error wrapping ErrBehaviorNotFound when no behavior is bound.
func (r *Registry) Invoke(ctx *Context) error {
	b, ok := r.behaviors[ctx.Ability.ID()]
	if !ok {
		return fmt.Errorf("%w: ability %d (%s)", ErrBehaviorNotFound, ctx.Ability.ID(), ctx.Ability.Def.Name)
	}
	return b.Apply(ctx)
}

// Missing returns the IDs in defs that have no registered behavior.
func (r *Registry) Missing(defs []*ability.Definition) []int {
	var out []int
	for _, d := range defs {
		if _, ok := r.behaviors[d.ID]; !ok {
			out = append(out, d.ID)
		}
	}
	return out
}

package combat

import (
	"sync"
	"time"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
)

// EventType names a notification sent to observers.
type EventType string

const (
	EventCombatLog         EventType = "combat_log"
	EventDamage            EventType = "damage"
	EventHealing           EventType = "healing"
	EventAttack            EventType = "attack"
	EventTriggerTalent     EventType = "trigger_talent"
	EventTriggerCollection EventType = "trigger_collection"
	EventEndBattle         EventType = "end_battle"
	EventGameOver          EventType = "game_over"
)

// Event is a one-way notification about something meaningful in a fight.
// Only the fields relevant to Type are set.
type Event struct {
	Type        EventType       `json:"type"`
	SessionID   string          `json:"session_id,omitempty"`
	At          time.Duration   `json:"at"`
	CombatantID string          `json:"combatant_id,omitempty"`
	AbilityID   int             `json:"ability_id,omitempty"`
	Trigger     ability.Trigger `json:"trigger,omitempty"`
	Amount      float64         `json:"amount,omitempty"`
	// Source names what caused damage or healing: "attack", "poison", "burn",
	// "regen" or an ability name.
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// Sink receives events. Emit must not block the caller for long; the engine
// does not wait for acknowledgment.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// MultiSink fans each event out to every member in order.
type MultiSink []Sink

// Emit forwards e to every member.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Recorder is a Sink that keeps every event. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events with type t.
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Triggers returns the trigger kinds reported by trigger_talent and
// trigger_collection events, in order.
func (r *Recorder) Triggers() []ability.Trigger {
	var out []ability.Trigger
	for _, e := range r.Events() {
		if e.Type == EventTriggerTalent || e.Type == EventTriggerCollection {
			out = append(out, e.Trigger)
		}
	}
	return out
}

// Reset discards every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

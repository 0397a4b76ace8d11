package combat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/character"
	"github.com/cory-johannsen/autobattle/internal/game/clock"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/game/inventory"
)

// ErrInvalidState is returned when a session operation is called in the wrong phase.
var ErrInvalidState = errors.New("combat: invalid session state")

// Options configures a Session.
type Options struct {
	ID string
	// Settings zero value selects DefaultSettings.
	Settings Settings
	Registry *Registry
	// Clock nil creates a private clock at time zero.
	Clock *clock.Clock
	// Sink nil discards events.
	Sink Sink
	// Rand nil draws from crypto/rand.
	Rand   dice.Source
	Logger *zap.Logger

	Shop       []ShopListing
	QuestItems []*inventory.Item

	// OnResolved is called once, on the session goroutine, when the session resolves.
	OnResolved func(Result)
}

// Result reports how a session ended.
type Result struct {
	SessionID string
	Outcome   Outcome
	// Player and Opponent are the terminal snapshots after rewards.
	Player   *character.Snapshot
	Opponent *character.Snapshot
	Reward   Reward
	Duration time.Duration
	// Reason is set for abandoned sessions.
	Reason string
}

// Session runs one fight between a player and an opponent.
//
// All methods must be called from the goroutine driving the session's clock;
// external input is delivered through Run's posts channel.
type Session struct {
	id         string
	settings   Settings
	clock      *clock.Clock
	timers     *clock.Group
	dispatcher *Dispatcher
	sink       Sink
	rand       dice.Source
	logger     *zap.Logger
	shop       []ShopListing
	questItems []*inventory.Item
	onResolved func(Result)

	state     State
	outcome   Outcome
	player    *Combatant
	opponent  *Combatant
	startedAt time.Duration

	burnTimer  *clock.Timer
	burnDamage float64
	result     *Result
}

// NewSession creates an idle Session.
//
// Precondition: opts.Registry must not be nil.
// Postcondition: Returns an error if the registry is missing or a settings period is not positive.
func NewSession(opts Options) (*Session, error) {
	if opts.Registry == nil {
		return nil, errors.New("combat: session requires a behavior registry")
	}
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Sink == nil {
		opts.Sink = Discard
	}
	if opts.Rand == nil {
		opts.Rand = dice.NewCryptoSource()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.With(zap.String("session", opts.ID))
	return &Session{
		id:         opts.ID,
		settings:   opts.Settings,
		clock:      opts.Clock,
		timers:     opts.Clock.NewGroup(),
		dispatcher: NewDispatcher(opts.Registry, logger, opts.Settings.MaxDispatchDepth),
		sink:       opts.Sink,
		rand:       opts.Rand,
		logger:     logger,
		shop:       opts.Shop,
		questItems: opts.QuestItems,
		onResolved: opts.OnResolved,
	}, nil
}

// Validate checks that every period is positive.
func (s Settings) Validate() error {
	var errs []error
	for _, p := range []struct {
		name string
		d    time.Duration
	}{
		{"tick_interval", s.TickInterval},
		{"regen_interval", s.RegenInterval},
		{"aura_interval", s.AuraInterval},
		{"poison_interval", s.PoisonInterval},
		{"poison_decay", s.PoisonDecay},
		{"burn_interval", s.BurnInterval},
	} {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", p.name))
		}
	}
	if s.Countdown < 0 {
		errs = append(errs, errors.New("countdown must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("combat settings: %w", errors.Join(errs...))
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Outcome returns the outcome; OutcomeNone until resolved.
func (s *Session) Outcome() Outcome { return s.outcome }

// Player returns the player combatant.
func (s *Session) Player() *Combatant { return s.player }

// Opponent returns the opponent combatant.
func (s *Session) Opponent() *Combatant { return s.opponent }

// Clock returns the clock driving the session.
func (s *Session) Clock() *clock.Clock { return s.clock }

// Result returns the session result once resolved.
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Load assigns both combatants, computes their initial stats and begins the
// countdown: one message per second, then the fight starts.
//
// Precondition: player and opponent must be non-nil and distinct.
// Postcondition: State() == StateCountdown, or an error wrapping ErrInvalidState.
func (s *Session) Load(player, opponent *Combatant) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: load while %s", ErrInvalidState, s.state)
	}
	if player == nil || opponent == nil || player == opponent {
		return errors.New("combat: load requires two distinct combatants")
	}
	s.player, s.opponent = player, opponent
	Recompute(player, opponent, s.logger)
	Recompute(opponent, player, s.logger)
	s.state = StateCountdown

	n := s.settings.Countdown
	for i := 0; i < n; i++ {
		remaining := n - i
		s.timers.AfterFunc(time.Duration(i)*time.Second, func() {
			s.logf("Battle starts in %d...", remaining)
		})
	}
	s.timers.AfterFunc(time.Duration(n)*time.Second, s.start)
	s.logger.Debug("session loaded",
		zap.String("player", player.ID),
		zap.String("opponent", opponent.ID),
	)
	return nil
}

func (s *Session) start() {
	if s.state != StateCountdown {
		return
	}
	s.state = StateActive
	s.startedAt = s.clock.Now()
	s.logf("Fight!")

	pairs := [2][2]*Combatant{{s.player, s.opponent}, {s.opponent, s.player}}
	for _, p := range pairs {
		s.scheduleAttack(p[0], p[1])
		s.ensureRegen(p[0])
	}
	for _, p := range pairs {
		s.dispatch(ability.FightStart, p[0], p[1], 0, false)
	}
	Recompute(s.player, s.opponent, s.logger)
	Recompute(s.opponent, s.player, s.logger)
	for _, p := range pairs {
		s.ensureRegen(p[0])
		s.startAbilityTimers(p[0], p[1])
	}
	s.timers.Every(s.settings.TickInterval, s.tick)
}

// resolve ends an active fight: timers are cleared, FIGHT_END is dispatched,
// rewards are applied and the outcome is reported.
func (s *Session) resolve(outcome Outcome) {
	if s.state == StateResolved {
		return
	}
	s.state = StateResolved
	s.outcome = outcome
	duration := s.Now()
	s.timers.StopAll()
	s.player.Invincible = false
	s.opponent.Invincible = false

	s.dispatch(ability.FightEnd, s.player, s.opponent, 0, false)
	s.dispatch(ability.FightEnd, s.opponent, s.player, 0, false)
	s.timers.StopAll()

	reward := s.applyRewards(outcome)
	for _, c := range []*Combatant{s.player, s.opponent} {
		for _, a := range c.Abilities() {
			a.Reset()
		}
	}

	s.logf("Battle over: %s", outcome)
	s.Emit(Event{Type: EventEndBattle, Outcome: outcome.String()})
	if s.player.Lives <= 0 {
		s.Emit(Event{Type: EventGameOver, CombatantID: s.player.ID, Message: fmt.Sprintf("%s has no lives left after %d wins", s.player.Name, s.player.Wins)})
	}
	s.finish(Result{
		SessionID: s.id,
		Outcome:   outcome,
		Player:    s.player.Terminal(),
		Opponent:  s.opponent.Terminal(),
		Reward:    reward,
		Duration:  duration,
	})
}

// Abort ends the session after a disconnect. Timers are cleared, no trigger is
// dispatched and no reward is applied.
//
// Postcondition: State() == StateResolved and Outcome() == OutcomeAbandoned,
// unless the session had already resolved.
func (s *Session) Abort(reason string) {
	if s.state == StateResolved {
		return
	}
	duration := s.Now()
	s.state = StateResolved
	s.outcome = OutcomeAbandoned
	s.timers.StopAll()
	s.logf("Battle abandoned: %s", reason)
	s.Emit(Event{Type: EventEndBattle, Outcome: OutcomeAbandoned.String(), Message: reason})

	res := Result{SessionID: s.id, Outcome: OutcomeAbandoned, Duration: duration, Reason: reason}
	if s.player != nil {
		res.Player = s.player.Terminal()
	}
	if s.opponent != nil {
		res.Opponent = s.opponent.Terminal()
	}
	s.finish(res)
}

func (s *Session) finish(res Result) {
	s.result = &res
	s.logger.Info("session resolved",
		zap.String("outcome", res.Outcome.String()),
		zap.Duration("duration", res.Duration),
	)
	if s.onResolved != nil {
		s.onResolved(res)
	}
}

// Run drives the session clock in real time until the session resolves or ctx
// is done. Functions received on posts run on the session goroutine.
func (s *Session) Run(ctx context.Context, posts <-chan func()) error {
	return s.clock.Run(ctx, posts)
}

// FastForward advances virtual time in tick-sized steps until the session
// resolves or limit elapses.
//
// Postcondition: Returns true iff the session resolved.
func (s *Session) FastForward(limit time.Duration) bool {
	step := s.settings.TickInterval
	for elapsed := time.Duration(0); elapsed < limit && s.state != StateResolved; elapsed += step {
		s.clock.Advance(step)
	}
	return s.state == StateResolved
}

// Now returns the elapsed fight time; zero before the fight starts.
func (s *Session) Now() time.Duration {
	if s.state == StateIdle || s.state == StateCountdown {
		return 0
	}
	return s.clock.Now() - s.startedAt
}

// Emit stamps e with the session ID and clock time and forwards it to the sink.
func (s *Session) Emit(e Event) {
	e.SessionID = s.id
	e.At = s.clock.Now()
	s.sink.Emit(e)
}

func (s *Session) logf(format string, args ...any) {
	s.Emit(Event{Type: EventCombatLog, Message: fmt.Sprintf(format, args...)})
}

func (s *Session) other(c *Combatant) *Combatant {
	if c == s.player {
		return s.opponent
	}
	return s.player
}

func (s *Session) context(self, opponent *Combatant) *Context {
	return &Context{
		Self:       self,
		Opponent:   opponent,
		Sink:       s,
		Timers:     s.timers,
		Shop:       s.shop,
		QuestItems: s.questItems,
		Dispatcher: s.dispatcher,
		Arena:      s,
		Rand:       s.rand,
		Logger:     s.logger,
	}
}

func (s *Session) dispatch(trigger ability.Trigger, self, opponent *Combatant, damage float64, hasDamage bool) int {
	ctx := s.context(self, opponent)
	ctx.Damage = damage
	ctx.HasDamage = hasDamage
	return s.dispatcher.Dispatch(trigger, ctx)
}

func (s *Session) applyDamage(target *Combatant, amount float64, cause string) bool {
	if !target.TakeDamage(amount) {
		return false
	}
	s.Emit(Event{Type: EventDamage, CombatantID: target.ID, Amount: amount, Source: cause})
	return true
}

// DealDamage dispatches ON_DAMAGE on target, then applies amount.
// Damage outside the active phase is ignored.
func (s *Session) DealDamage(source, target *Combatant, amount float64, cause string) bool {
	if amount <= 0 || s.state != StateActive {
		return false
	}
	s.dispatch(ability.OnDamage, target, source, amount, true)
	return s.applyDamage(target, amount, cause)
}

// Heal restores up to amount hp to target.
func (s *Session) Heal(target *Combatant, amount float64, cause string) float64 {
	restored := target.Heal(amount)
	if restored > 0 {
		s.Emit(Event{Type: EventHealing, CombatantID: target.ID, Amount: restored, Source: cause})
	}
	return restored
}

// ApplyPoison adds stacks to target. The first stack starts the poison timer;
// each application's stacks are removed again after the poison decay delay,
// and the timer stops once the stack reaches zero.
func (s *Session) ApplyPoison(target *Combatant, stacks int) {
	if stacks <= 0 || s.state != StateActive {
		return
	}
	added := target.AddPoison(stacks)
	if added == 0 {
		return
	}
	if !target.poisonTimer.Active() {
		target.poisonTimer = s.timers.Every(s.settings.PoisonInterval, func() { s.poisonTick(target) })
	}
	s.timers.AfterFunc(s.settings.PoisonDecay, func() {
		target.AddPoison(-added)
		if target.PoisonStack == 0 {
			target.poisonTimer.Stop()
		}
	})
}

// GrantInvincibility makes target immune to damage for d. An existing longer
// invincibility is kept.
func (s *Session) GrantInvincibility(target *Combatant, d time.Duration) {
	if d <= 0 || s.state != StateActive {
		return
	}
	until := s.clock.Now() + d
	if target.invincibleTimer.Active() && target.invincibleTimer.Deadline() >= until {
		return
	}
	target.invincibleTimer.Stop()
	target.Invincible = true
	target.invincibleTimer = s.timers.AfterFunc(d, func() { target.Invincible = false })
}

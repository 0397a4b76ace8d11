package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/character"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
)

// persistTimeout bounds the terminal-state write after a match resolves.
const persistTimeout = 5 * time.Second

// Matchmaker builds ready-to-run sessions from stored snapshots and persists
// their results.
type Matchmaker struct {
	Store            SnapshotStore
	Catalog          *Catalog
	Registry         *combat.Registry
	Settings         combat.Settings
	OpponentLookback int
	// Sink receives every event of every session; nil discards.
	Sink   combat.Sink
	Logger *zap.Logger
	// NewSource returns the randomness for one session; nil uses crypto/rand.
	NewSource func() dice.Source
	// OnResult is called after the result has been persisted; may be nil.
	OnResult func(combat.Result)
}

// Match is a loaded session and its participants.
type Match struct {
	ID         string
	PlayerID   string
	OpponentID string
	Session    *combat.Session
}

// Prepare loads playerID, picks an opponent, and returns a session already in
// its countdown. The caller drives the session's clock.
//
// Precondition: m.Store, m.Catalog, m.Registry and m.Logger must be set.
// Postcondition: Returns ErrMissingParameter, ErrCombatantNotFound or
// ErrEliminated for bad requests; otherwise a loaded Match.
func (m *Matchmaker) Prepare(ctx context.Context, playerID string) (*Match, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id", ErrMissingParameter)
	}
	snap, err := m.Store.FetchCombatant(ctx, playerID)
	if err != nil {
		if errors.Is(err, character.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCombatantNotFound, playerID)
		}
		return nil, fmt.Errorf("loading %q: %w", playerID, err)
	}
	if snap.Lives <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEliminated, playerID)
	}
	oppSnap, err := FindOpponent(ctx, m.Store, snap.Round, snap.ID, m.OpponentLookback)
	if err != nil {
		return nil, err
	}

	player, err := combat.NewCombatant(snap, m.Catalog.Abilities, m.Catalog.Items)
	if err != nil {
		return nil, fmt.Errorf("building player %q: %w", playerID, err)
	}
	opponent, err := combat.NewCombatant(oppSnap, m.Catalog.Abilities, m.Catalog.Items)
	if err != nil {
		return nil, fmt.Errorf("building opponent %q: %w", oppSnap.ID, err)
	}

	var rng dice.Source
	if m.NewSource != nil {
		rng = m.NewSource()
	} else {
		rng = dice.NewCryptoSource()
	}
	id := uuid.NewString()
	sess, err := combat.NewSession(combat.Options{
		ID:         id,
		Settings:   m.Settings,
		Registry:   m.Registry,
		Sink:       m.Sink,
		Rand:       rng,
		Logger:     m.Logger,
		Shop:       m.Catalog.Shop(rng),
		QuestItems: m.Catalog.QuestItems(),
		OnResolved: func(res combat.Result) { m.persist(ctx, res) },
	})
	if err != nil {
		return nil, err
	}
	if err := sess.Load(player, opponent); err != nil {
		return nil, err
	}
	m.Logger.Info("match prepared",
		zap.String("match", id),
		zap.String("player", player.ID),
		zap.String("opponent", opponent.ID),
		zap.Int("round", snap.Round),
	)
	return &Match{ID: id, PlayerID: player.ID, OpponentID: opponent.ID, Session: sess}, nil
}

// persist saves the player's terminal state. Abandoned matches change nothing.
// Failures are logged; the match result stands.
func (m *Matchmaker) persist(ctx context.Context, res combat.Result) {
	if res.Outcome != combat.OutcomeAbandoned && res.Player != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := m.Store.SaveTerminalState(ctx, res.Player); err != nil {
			m.Logger.Error("saving terminal state",
				zap.String("match", res.SessionID),
				zap.String("player", res.Player.ID),
				zap.Error(err),
			)
		}
	}
	if m.OnResult != nil {
		m.OnResult(res)
	}
}

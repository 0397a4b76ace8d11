// Package gameserver hosts arena matches: it loads combatants from the
// snapshot store, picks an opponent, runs the combat session on its own
// goroutine, and persists the result.
package gameserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/cory-johannsen/autobattle/internal/game/character"
)

var (
	// ErrMissingParameter is returned when a required request field is empty.
	ErrMissingParameter = errors.New("gameserver: missing parameter")
	// ErrCombatantNotFound is returned when the requested combatant has no snapshot.
	ErrCombatantNotFound = errors.New("gameserver: combatant not found")
	// ErrEliminated is returned when a combatant with no lives left asks for a match.
	ErrEliminated = errors.New("gameserver: combatant eliminated")
	// ErrAlreadyInMatch is returned when a combatant already has a running match.
	ErrAlreadyInMatch = errors.New("gameserver: combatant already in a match")
	// ErrMatchNotFound is returned for operations on an unknown match ID.
	ErrMatchNotFound = errors.New("gameserver: match not found")
	// ErrArenaFull is returned when the concurrent match limit is reached.
	ErrArenaFull = errors.New("gameserver: arena full")
	// ErrArenaClosed is returned after the arena has been stopped.
	ErrArenaClosed = errors.New("gameserver: arena closed")
)

// SnapshotStore loads and saves combatant snapshots.
// Absent records are reported with an error wrapping character.ErrNotFound.
type SnapshotStore interface {
	FetchCombatant(ctx context.Context, id string) (*character.Snapshot, error)
	FetchOpponentForRound(ctx context.Context, round int, excludeID string) (*character.Snapshot, error)
	SaveTerminalState(ctx context.Context, snap *character.Snapshot) error
}

// FindOpponent searches rounds round, round-1, ... down to round-lookback
// (never below 1) for a recorded build other than excludeID, falling back to
// character.Baseline.
//
// Precondition: lookback >= 0.
// Postcondition: Returns a snapshot, or a store error other than not-found.
func FindOpponent(ctx context.Context, store SnapshotStore, round int, excludeID string, lookback int) (*character.Snapshot, error) {
	for r := round; r >= 1 && r >= round-lookback; r-- {
		snap, err := store.FetchOpponentForRound(ctx, r, excludeID)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, character.ErrNotFound) {
			return nil, fmt.Errorf("finding opponent for round %d: %w", r, err)
		}
	}
	return character.Baseline(), nil
}

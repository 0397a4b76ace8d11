package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/autobattle/internal/game/character"
)

const upsertCombatant = `
	INSERT INTO combatants (id, name, level, round, lives, wins, gold, xp, snapshot)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name, level = EXCLUDED.level, round = EXCLUDED.round,
		lives = EXCLUDED.lives, wins = EXCLUDED.wins, gold = EXCLUDED.gold,
		xp = EXCLUDED.xp, snapshot = EXCLUDED.snapshot, updated_at = NOW()`

const upsertRoundSnapshot = `
	INSERT INTO round_snapshots (combatant_id, round, snapshot)
	VALUES ($1,$2,$3)
	ON CONFLICT (combatant_id, round) DO UPDATE SET
		snapshot = EXCLUDED.snapshot, recorded_at = NOW()`

// CombatantRepository stores combatant snapshots and the per-round builds
// that later players are matched against.
type CombatantRepository struct {
	db *pgxpool.Pool
}

// NewCombatantRepository creates a CombatantRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCombatantRepository(db *pgxpool.Pool) *CombatantRepository {
	return &CombatantRepository{db: db}
}

// FetchCombatant retrieves the current snapshot for id.
//
// Postcondition: Returns the snapshot or an error wrapping character.ErrNotFound.
func (r *CombatantRepository) FetchCombatant(ctx context.Context, id string) (*character.Snapshot, error) {
	var snap character.Snapshot
	err := r.db.QueryRow(ctx,
		`SELECT snapshot, updated_at FROM combatants WHERE id = $1`, id,
	).Scan(&snap, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("combatant %q: %w", id, character.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching combatant %q: %w", id, err)
	}
	return &snap, nil
}

// FetchOpponentForRound returns the most recently recorded build for round
// that does not belong to excludeID.
//
// Precondition: round >= 1.
// Postcondition: Returns a snapshot or an error wrapping character.ErrNotFound.
func (r *CombatantRepository) FetchOpponentForRound(ctx context.Context, round int, excludeID string) (*character.Snapshot, error) {
	var snap character.Snapshot
	err := r.db.QueryRow(ctx, `
		SELECT snapshot, recorded_at FROM round_snapshots
		WHERE round = $1 AND combatant_id <> $2
		ORDER BY recorded_at DESC
		LIMIT 1`,
		round, excludeID,
	).Scan(&snap, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("opponent for round %d: %w", round, character.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching opponent for round %d: %w", round, err)
	}
	return &snap, nil
}

// SaveTerminalState persists snap as the combatant's current state and, while
// the combatant still has lives, records it as a build for its round.
//
// Precondition: snap must pass Validate.
// Postcondition: Both writes commit together or not at all.
func (r *CombatantRepository) SaveTerminalState(ctx context.Context, snap *character.Snapshot) error {
	return r.Import(ctx, []*character.Snapshot{snap})
}

// Import saves every snapshot in one transaction using a single batch.
//
// Precondition: every snapshot must pass Validate.
// Postcondition: Returns nil iff all snapshots were stored.
func (r *CombatantRepository) Import(ctx context.Context, snaps []*character.Snapshot) error {
	b := &pgx.Batch{}
	for _, snap := range snaps {
		if err := snap.Validate(); err != nil {
			return err
		}
		queueSave(b, snap)
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("saving combatants: %w", err)
		}
		return nil
	})
}

func queueSave(b *pgx.Batch, snap *character.Snapshot) {
	b.Queue(upsertCombatant,
		snap.ID, snap.Name, snap.Level, snap.Round, snap.Lives,
		snap.Wins, snap.Gold, snap.XP, snap,
	)
	if snap.Lives > 0 && snap.Round >= 1 {
		b.Queue(upsertRoundSnapshot, snap.ID, snap.Round, snap)
	}
}

// Delete removes a combatant and its recorded builds.
//
// Postcondition: Returns an error wrapping character.ErrNotFound if no row matched.
func (r *CombatantRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM combatants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting combatant %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("combatant %q: %w", id, character.ErrNotFound)
	}
	return nil
}

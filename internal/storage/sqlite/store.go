// Package sqlite provides an embedded SQLite snapshot store for the simulator
// and single-node servers.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/autobattle/internal/game/character"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store persists combatant snapshots in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path and applies the embedded schema.
//
// Precondition: path is a writable file path or MemoryPath.
// Postcondition: Returns a ready Store or a non-nil error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: storage path is required")
	}
	dsn := path
	if path != MemoryPath {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func applySchema(db *sql.DB) error {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("listing schema: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if _, err := db.Exec(string(body)); err != nil {
			return fmt.Errorf("applying %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FetchCombatant retrieves the current snapshot for id.
//
// Postcondition: Returns the snapshot or an error wrapping character.ErrNotFound.
func (s *Store) FetchCombatant(ctx context.Context, id string) (*character.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT snapshot, updated_at FROM combatants WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("combatant %q: %w", id, character.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching combatant %q: %w", id, err)
	}
	return snap, nil
}

// FetchOpponentForRound returns the most recently recorded build for round
// that does not belong to excludeID.
//
// Postcondition: Returns a snapshot or an error wrapping character.ErrNotFound.
func (s *Store) FetchOpponentForRound(ctx context.Context, round int, excludeID string) (*character.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot, recorded_at FROM round_snapshots
		WHERE round = ? AND combatant_id <> ?
		ORDER BY recorded_at DESC, combatant_id
		LIMIT 1`, round, excludeID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opponent for round %d: %w", round, character.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching opponent for round %d: %w", round, err)
	}
	return snap, nil
}

// SaveTerminalState persists snap as the combatant's current state and, while
// the combatant still has lives, records it as a build for its round.
//
// Precondition: snap must pass Validate.
func (s *Store) SaveTerminalState(ctx context.Context, snap *character.Snapshot) error {
	return s.Import(ctx, []*character.Snapshot{snap})
}

// Import saves every snapshot in one transaction.
//
// Postcondition: Returns nil iff all snapshots were stored.
func (s *Store) Import(ctx context.Context, snaps []*character.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().UnixMilli()
	for _, snap := range snaps {
		if err := snap.Validate(); err != nil {
			return err
		}
		body, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encoding %q: %w", snap.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO combatants (id, name, level, round, lives, gold, snapshot, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name, level = excluded.level, round = excluded.round,
				lives = excluded.lives, gold = excluded.gold,
				snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
			snap.ID, snap.Name, snap.Level, snap.Round, snap.Lives, snap.Gold, string(body), now,
		); err != nil {
			return fmt.Errorf("saving combatant %q: %w", snap.ID, err)
		}
		if snap.Lives <= 0 || snap.Round < 1 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO round_snapshots (combatant_id, round, snapshot, recorded_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (combatant_id, round) DO UPDATE SET
				snapshot = excluded.snapshot, recorded_at = excluded.recorded_at`,
			snap.ID, snap.Round, string(body), now,
		); err != nil {
			return fmt.Errorf("recording round %d for %q: %w", snap.Round, snap.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored combatants.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM combatants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting combatants: %w", err)
	}
	return n, nil
}

func scanSnapshot(row *sql.Row) (*character.Snapshot, error) {
	var (
		body string
		at   int64
	)
	if err := row.Scan(&body, &at); err != nil {
		return nil, err
	}
	var snap character.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	snap.UpdatedAt = time.UnixMilli(at).UTC()
	return &snap, nil
}

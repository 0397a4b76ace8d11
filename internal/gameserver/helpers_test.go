package gameserver_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/autobattle/internal/config"
	"github.com/cory-johannsen/autobattle/internal/game/character"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/gameserver"
	"github.com/cory-johannsen/autobattle/internal/scripting"
)

const contentDir = "../../content"

// memStore is an in-memory SnapshotStore recording one build per (round, id).
type memStore struct {
	mu      sync.Mutex
	current map[string]*character.Snapshot
	rounds  map[int][]*character.Snapshot
	saved   []*character.Snapshot
	failErr error
}

func newMemStore(snaps ...*character.Snapshot) *memStore {
	s := &memStore{current: map[string]*character.Snapshot{}, rounds: map[int][]*character.Snapshot{}}
	for _, snap := range snaps {
		s.put(snap)
	}
	return s
}

func (s *memStore) put(snap *character.Snapshot) {
	s.current[snap.ID] = snap.Clone()
	if snap.Lives > 0 && snap.Round >= 1 {
		s.rounds[snap.Round] = append(s.rounds[snap.Round], snap.Clone())
	}
}

func (s *memStore) FetchCombatant(_ context.Context, id string) (*character.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	snap, ok := s.current[id]
	if !ok {
		return nil, fmt.Errorf("combatant %q: %w", id, character.ErrNotFound)
	}
	return snap.Clone(), nil
}

func (s *memStore) FetchOpponentForRound(_ context.Context, round int, excludeID string) (*character.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	builds := s.rounds[round]
	for i := len(builds) - 1; i >= 0; i-- {
		if builds[i].ID != excludeID {
			return builds[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("round %d: %w", round, character.ErrNotFound)
}

func (s *memStore) SaveTerminalState(_ context.Context, snap *character.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snap.Clone())
	s.put(snap)
	return nil
}

func (s *memStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

var errStoreDown = errors.New("store down")

func loadCatalog(t testing.TB) *gameserver.Catalog {
	t.Helper()
	cat, err := gameserver.LoadCatalog(config.ContentConfig{Dir: contentDir})
	require.NoError(t, err)
	return cat
}

func sampleSnapshots(t testing.TB) []*character.Snapshot {
	t.Helper()
	snaps, err := character.LoadSnapshots(contentDir + "/snapshots/sample.yaml")
	require.NoError(t, err)
	return snaps
}

func scriptManager(t *testing.T) *scripting.Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(7), logger), logger)
	require.NoError(t, mgr.Load(contentDir+"/scripts", 0))
	t.Cleanup(mgr.Close)
	return mgr
}

func newMatchmaker(t *testing.T, store gameserver.SnapshotStore, settings combat.Settings) *gameserver.Matchmaker {
	t.Helper()
	cat := loadCatalog(t)
	reg, err := cat.Registry(scriptManager(t))
	require.NoError(t, err)
	var seed uint64
	var seedMu sync.Mutex
	return &gameserver.Matchmaker{
		Store:            store,
		Catalog:          cat,
		Registry:         reg,
		Settings:         settings,
		OpponentLookback: 3,
		Logger:           zaptest.NewLogger(t),
		NewSource: func() dice.Source {
			seedMu.Lock()
			defer seedMu.Unlock()
			seed++
			return dice.NewSeededSource(seed)
		},
	}
}

// quickSettings ends every fight within a few hundred milliseconds of wall time.
func quickSettings() combat.Settings {
	s := combat.DefaultSettings()
	s.Countdown = 0
	s.TickInterval = 10 * time.Millisecond
	s.BurnStart = 50 * time.Millisecond
	s.BurnInterval = 20 * time.Millisecond
	s.BurnInitialDamage = 1000
	return s
}

package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/autobattle/internal/game/combat"
)

// MatchInfo describes a running match.
type MatchInfo struct {
	ID         string
	PlayerID   string
	OpponentID string
	StartedAt  time.Time
}

type liveMatch struct {
	info    MatchInfo
	session *combat.Session
	posts   chan func()
}

// Arena runs matches in real time, one goroutine per match, supervised by an
// errgroup. It implements server.Service.
type Arena struct {
	mm         *Matchmaker
	logger     *zap.Logger
	timeout    time.Duration
	maxMatches int

	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	mu      sync.Mutex
	matches map[string]*liveMatch
	players map[string]string
}

// NewArena creates an Arena that prepares matches with mm.
//
// Precondition: mm must be fully configured.
// Postcondition: timeout <= 0 disables the per-match timeout; maxMatches <= 0
// means unlimited.
func NewArena(mm *Matchmaker, timeout time.Duration, maxMatches int) *Arena {
	ctx, cancel := context.WithCancel(context.Background())
	g := &errgroup.Group{}
	if maxMatches > 0 {
		g.SetLimit(maxMatches)
	}
	return &Arena{
		mm:         mm,
		logger:     mm.Logger,
		timeout:    timeout,
		maxMatches: maxMatches,
		ctx:        ctx,
		cancel:     cancel,
		g:          g,
		matches:    make(map[string]*liveMatch),
		players:    make(map[string]string),
	}
}

// StartMatch prepares a match for playerID and runs it on its own goroutine.
//
// Postcondition: Returns the match description, or ErrAlreadyInMatch,
// ErrArenaFull, ErrArenaClosed, or a Matchmaker.Prepare error.
func (a *Arena) StartMatch(ctx context.Context, playerID string) (MatchInfo, error) {
	if a.ctx.Err() != nil {
		return MatchInfo{}, ErrArenaClosed
	}
	a.mu.Lock()
	if _, busy := a.players[playerID]; busy && playerID != "" {
		a.mu.Unlock()
		return MatchInfo{}, fmt.Errorf("%w: %s", ErrAlreadyInMatch, playerID)
	}
	// reserve the player while the match is prepared
	a.players[playerID] = ""
	a.mu.Unlock()

	m, err := a.mm.Prepare(ctx, playerID)
	if err != nil {
		a.release(playerID, "")
		return MatchInfo{}, err
	}

	live := &liveMatch{
		info:    MatchInfo{ID: m.ID, PlayerID: m.PlayerID, OpponentID: m.OpponentID, StartedAt: time.Now()},
		session: m.Session,
		posts:   make(chan func(), 1),
	}
	a.mu.Lock()
	a.matches[m.ID] = live
	a.players[playerID] = m.ID
	a.mu.Unlock()

	if !a.g.TryGo(func() error { return a.run(live) }) {
		a.release(playerID, m.ID)
		return MatchInfo{}, ErrArenaFull
	}
	return live.info, nil
}

func (a *Arena) run(live *liveMatch) error {
	s := live.session
	defer a.release(live.info.PlayerID, live.info.ID)

	ctx := a.ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	err := s.Run(ctx, live.posts)
	if s.State() != combat.StateResolved {
		reason := "shutdown"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		s.Abort(reason)
	}
	a.logger.Debug("match finished",
		zap.String("match", live.info.ID),
		zap.String("outcome", s.Outcome().String()),
	)
	return nil
}

func (a *Arena) release(playerID, matchID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if matchID != "" {
		delete(a.matches, matchID)
	}
	if a.players[playerID] == matchID {
		delete(a.players, playerID)
	}
}

// Disconnect abandons a running match on the match's own goroutine.
//
// Postcondition: Returns ErrMatchNotFound if matchID is not running.
func (a *Arena) Disconnect(matchID string) error {
	a.mu.Lock()
	live, ok := a.matches[matchID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	abort := func() {
		a.logger.Info("player disconnected", zap.String("match", matchID))
		live.session.Abort("disconnect")
	}
	select {
	case live.posts <- abort:
	default:
		// a disconnect is already queued
	}
	return nil
}

// Matches returns the running matches ordered by start time.
func (a *Arena) Matches() []MatchInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]MatchInfo, 0, len(a.matches))
	for _, m := range a.matches {
		out = append(out, m.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Start blocks until ctx is done. Matches run independently of ctx and are
// ended by Stop.
func (a *Arena) Start(ctx context.Context) error {
	a.logger.Info("arena accepting matches", zap.Int("max_matches", a.maxMatches))
	<-ctx.Done()
	return nil
}

// Stop abandons every running match and waits for their goroutines.
//
// Postcondition: Returns ctx.Err() if the matches did not finish in time.
func (a *Arena) Stop(ctx context.Context) error {
	a.cancel()
	done := make(chan error, 1)
	go func() { done <- a.g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

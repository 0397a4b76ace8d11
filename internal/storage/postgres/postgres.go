// Package postgres persists combatant snapshots in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/config"
)

// connectBackoff is the first delay between failed connection attempts; it doubles up to maxBackoff.
const (
	connectBackoff = 250 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pool owns the pgx connection pool shared by the repositories.
type Pool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a connection pool and pings it, retrying with backoff until
// the database answers, attempts are used up, or ctx ends.
//
// Precondition: cfg must hold valid connection parameters; attempts >= 1.
// Postcondition: Returns a reachable Pool or the last error.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, attempts int) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	backoff := connectBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return &Pool{pool: pool, logger: logger}, nil
		}
		if attempt >= attempts {
			break
		}
		logger.Warn("database not ready",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("connecting to database: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
	pool.Close()
	return nil, fmt.Errorf("pinging database after %d attempts: %w", attempts, err)
}

// Ping checks that the database answers within timeout.
func (p *Pool) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Watch pings the database every interval until ctx ends, calling report
// with the result of each ping. Transitions are logged.
//
// Precondition: interval > 0; report must be non-nil.
func (p *Pool) Watch(ctx context.Context, interval, timeout time.Duration, report func(healthy bool)) {
	healthy := true
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		err := p.Ping(ctx, timeout)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil && healthy:
			p.logger.Warn("database unreachable", zap.Error(err))
		case err == nil && !healthy:
			p.logger.Info("database reachable again")
		}
		healthy = err == nil
		report(healthy)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Combatants returns the combatant repository backed by this pool.
func (p *Pool) Combatants() *CombatantRepository {
	return NewCombatantRepository(p.pool)
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}

// Package main provides the arena server binary: it hosts real-time matches
// between stored combatants and persists each player's terminal state.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/config"
	"github.com/cory-johannsen/autobattle/internal/game/character"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/gameserver"
	"github.com/cory-johannsen/autobattle/internal/observability"
	"github.com/cory-johannsen/autobattle/internal/scripting"
	"github.com/cory-johannsen/autobattle/internal/server"
	"github.com/cory-johannsen/autobattle/internal/storage/postgres"
	"github.com/cory-johannsen/autobattle/internal/storage/sqlite"
)

const (
	dbConnectAttempts = 10
	dbProbeInterval   = 15 * time.Second
	dbProbeTimeout    = 2 * time.Second
)

// snapshotStore is the store contract plus bulk import used for seeding.
type snapshotStore interface {
	gameserver.SnapshotStore
	Import(ctx context.Context, snaps []*character.Snapshot) error
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	seedPath := flag.String("seed", "", "optional snapshots YAML imported before serving")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arena server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	var store snapshotStore
	var pool *postgres.Pool
	switch cfg.Server.Mode {
	case "postgres":
		dbStart := time.Now()
		pool, err = postgres.Connect(ctx, cfg.Database, logger, dbConnectAttempts)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = pool.Combatants()
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			logger.Fatal("opening sqlite store", zap.Error(err))
		}
		defer db.Close()
		logger.Info("sqlite store opened", zap.String("path", cfg.SQLite.Path))
		store = db
	}

	if *seedPath != "" {
		snaps, err := character.LoadSnapshots(*seedPath)
		if err != nil {
			logger.Fatal("loading seed snapshots", zap.Error(err))
		}
		if err := store.Import(ctx, snaps); err != nil {
			logger.Fatal("importing seed snapshots", zap.Error(err))
		}
		logger.Info("seed snapshots imported", zap.Int("count", len(snaps)))
	}

	catStart := time.Now()
	catalog, err := gameserver.LoadCatalog(cfg.Content)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("abilities", len(catalog.Abilities.All())),
		zap.Int("items", len(catalog.Items.Equippable())),
		zap.Duration("elapsed", time.Since(catStart)),
	)

	scriptMgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), logger), logger)
	if err := scriptMgr.Load(cfg.Content.ScriptsDir(), cfg.Content.ScriptInstructionLimit); err != nil {
		logger.Fatal("loading ability scripts", zap.Error(err))
	}
	defer scriptMgr.Close()

	registry, err := catalog.Registry(scriptMgr)
	if err != nil {
		logger.Fatal("building behavior registry", zap.Error(err))
	}

	events := gameserver.NewBroadcaster(cfg.GameServer.SubscriberBuffer, logger)
	defer events.Close()

	mm := &gameserver.Matchmaker{
		Store:            store,
		Catalog:          catalog,
		Registry:         registry,
		Settings:         cfg.Arena.Settings(),
		OpponentLookback: cfg.Arena.OpponentLookback,
		Sink:             combat.MultiSink{events, observability.EventLogger(logger)},
		Logger:           logger,
		OnResult: func(res combat.Result) {
			logger.Info("match result",
				zap.String("match", res.SessionID),
				zap.String("outcome", res.Outcome.String()),
				zap.Int("gold", res.Reward.Gold),
				zap.Int("xp", res.Reward.XP),
			)
		},
	}
	arena := gameserver.NewArena(mm, cfg.Arena.MatchTimeout, cfg.GameServer.MaxMatches)
	health := server.NewHealthService(cfg.GameServer.Addr(), logger)

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)
	lifecycle.Add("health", health)
	lifecycle.Add("arena", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			health.SetServing("arena", true)
			return arena.Start(ctx)
		},
		StopFn: func(ctx context.Context) error {
			health.SetServing("arena", false)
			return arena.Stop(ctx)
		},
	})

	if pool != nil {
		lifecycle.Add("store-watch", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				pool.Watch(ctx, dbProbeInterval, dbProbeTimeout, func(ok bool) {
					health.SetServing("store", ok)
				})
				return nil
			},
		})
	}

	logger.Info("arena server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("arena server failed", zap.Error(err))
	}
}

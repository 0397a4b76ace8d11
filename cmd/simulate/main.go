// Package main provides a headless simulator that fights a stored combatant
// through consecutive rounds on a virtual clock, for balancing runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/config"
	"github.com/cory-johannsen/autobattle/internal/game/character"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/gameserver"
	"github.com/cory-johannsen/autobattle/internal/observability"
	"github.com/cory-johannsen/autobattle/internal/scripting"
	"github.com/cory-johannsen/autobattle/internal/storage/sqlite"
)

// fightLimit bounds the virtual time of one simulated fight.
const fightLimit = time.Hour

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dbPath := flag.String("db", "", "sqlite database path; empty uses the configured path")
	importPath := flag.String("import", "", "snapshots YAML imported before simulating")
	playerID := flag.String("player", "", "combatant to simulate")
	fights := flag.Int("fights", 10, "maximum number of consecutive fights")
	seed := flag.Uint64("seed", 0, "random seed; 0 picks one")
	flag.Parse()

	if *playerID == "" {
		log.Fatal("-player is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	path := cfg.SQLite.Path
	if *dbPath != "" {
		path = *dbPath
	}
	store, err := sqlite.Open(path)
	if err != nil {
		logger.Fatal("opening sqlite store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if *importPath != "" {
		snaps, err := character.LoadSnapshots(*importPath)
		if err != nil {
			logger.Fatal("loading snapshots", zap.Error(err))
		}
		if err := store.Import(ctx, snaps); err != nil {
			logger.Fatal("importing snapshots", zap.Error(err))
		}
		logger.Info("snapshots imported", zap.Int("count", len(snaps)))
	}

	if *seed == 0 {
		*seed = dice.NewSeed()
	}
	logger.Info("simulation starting", zap.String("player", *playerID), zap.Uint64("seed", *seed))

	catalog, err := gameserver.LoadCatalog(cfg.Content)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	scriptMgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(*seed), logger), logger)
	if err := scriptMgr.Load(cfg.Content.ScriptsDir(), cfg.Content.ScriptInstructionLimit); err != nil {
		logger.Fatal("loading ability scripts", zap.Error(err))
	}
	defer scriptMgr.Close()
	registry, err := catalog.Registry(scriptMgr)
	if err != nil {
		logger.Fatal("building behavior registry", zap.Error(err))
	}

	next := *seed
	var last combat.Result
	mm := &gameserver.Matchmaker{
		Store:            store,
		Catalog:          catalog,
		Registry:         registry,
		Settings:         cfg.Arena.Settings(),
		OpponentLookback: cfg.Arena.OpponentLookback,
		Sink:             observability.EventLogger(logger),
		Logger:           logger,
		NewSource: func() dice.Source {
			next++
			return dice.NewLoggedRoller(dice.NewSeededSource(next), logger)
		},
		OnResult: func(res combat.Result) { last = res },
	}

	for i := 1; i <= *fights; i++ {
		m, err := mm.Prepare(ctx, *playerID)
		if errors.Is(err, gameserver.ErrEliminated) {
			break
		}
		if err != nil {
			logger.Fatal("preparing fight", zap.Int("fight", i), zap.Error(err))
		}
		if !m.Session.FastForward(fightLimit) {
			m.Session.Abort("time limit")
		}
		p := last.Player
		fmt.Fprintf(os.Stdout, "fight %d vs %s: %s in %s (round=%d lives=%d wins=%d gold=%d level=%d)\n",
			i, m.OpponentID, last.Outcome, last.Duration, p.Round, p.Lives, p.Wins, p.Gold, p.Level)
	}
}

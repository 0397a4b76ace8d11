// Package config provides Viper-based configuration loading for the arena server
// and the headless simulator.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/autobattle/internal/game/combat"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode selects the persistence backend: "postgres" or "sqlite".
	Mode string `mapstructure:"mode"`
	// ShutdownTimeout bounds how long in-flight matches may run after a stop request.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// SQLiteConfig holds the embedded store settings used by the simulator and by
// servers running in sqlite mode.
type SQLiteConfig struct {
	// Path is the database file; ":memory:" keeps everything in process.
	Path string `mapstructure:"path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds match hosting settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the gRPC health service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC health service.
	GRPCPort int `mapstructure:"grpc_port"`
	// MaxMatches caps concurrently running matches; 0 means unlimited.
	MaxMatches int `mapstructure:"max_matches"`
	// SubscriberBuffer is the per-observer event queue length.
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// ArenaConfig holds the tunable combat rules.
type ArenaConfig struct {
	Countdown         int           `mapstructure:"countdown"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	RegenInterval     time.Duration `mapstructure:"regen_interval"`
	AuraInterval      time.Duration `mapstructure:"aura_interval"`
	PoisonInterval    time.Duration `mapstructure:"poison_interval"`
	PoisonDecay       time.Duration `mapstructure:"poison_decay"`
	PoisonRate        float64       `mapstructure:"poison_rate"`
	BurnStart         time.Duration `mapstructure:"burn_start"`
	BurnInterval      time.Duration `mapstructure:"burn_interval"`
	BurnInitialDamage float64       `mapstructure:"burn_initial_damage"`
	BurnIncrement     float64       `mapstructure:"burn_increment"`
	GoldPerRound      int           `mapstructure:"gold_per_round"`
	XPPerRound        int           `mapstructure:"xp_per_round"`
	XPPerLevel        int           `mapstructure:"xp_per_level"`
	MaxDispatchDepth  int           `mapstructure:"max_dispatch_depth"`
	// OpponentLookback bounds how many earlier rounds are searched for an
	// opponent before falling back to the baseline character.
	OpponentLookback int `mapstructure:"opponent_lookback"`
	// MatchTimeout aborts a match that has not resolved within this wall-clock time.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
}

// Settings converts the arena section into engine settings.
//
// Postcondition: The result passes combat.Settings.Validate iff the section
// passes Config.Validate.
func (a ArenaConfig) Settings() combat.Settings {
	return combat.Settings{
		Countdown:         a.Countdown,
		TickInterval:      a.TickInterval,
		RegenInterval:     a.RegenInterval,
		AuraInterval:      a.AuraInterval,
		PoisonInterval:    a.PoisonInterval,
		PoisonDecay:       a.PoisonDecay,
		PoisonRate:        a.PoisonRate,
		BurnStart:         a.BurnStart,
		BurnInterval:      a.BurnInterval,
		BurnInitialDamage: a.BurnInitialDamage,
		BurnIncrement:     a.BurnIncrement,
		GoldPerRound:      a.GoldPerRound,
		XPPerRound:        a.XPPerRound,
		XPPerLevel:        a.XPPerLevel,
		MaxDispatchDepth:  a.MaxDispatchDepth,
	}
}

// ContentConfig locates the YAML catalogs and Lua scripts.
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
	// ScriptInstructionLimit bounds every Lua hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// AbilitiesDir returns the ability catalog directory.
func (c ContentConfig) AbilitiesDir() string { return filepath.Join(c.Dir, "abilities") }

// ItemsDir returns the item catalog directory.
func (c ContentConfig) ItemsDir() string { return filepath.Join(c.Dir, "items") }

// ScriptsDir returns the Lua script directory.
func (c ContentConfig) ScriptsDir() string { return filepath.Join(c.Dir, "scripts") }

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Arena      ArenaConfig      `mapstructure:"arena"`
	Content    ContentConfig    `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Server.Mode {
	case "postgres":
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			errs = append(errs, "sqlite.path must not be empty")
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateArena(c.Arena); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Content.Dir == "" {
		errs = append(errs, "content.dir must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"postgres": true, "sqlite": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [postgres, sqlite], got %q", s.Mode)
	}
	if s.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.MaxMatches < 0 {
		errs = append(errs, fmt.Sprintf("gameserver.max_matches must be >= 0 (got %d)", g.MaxMatches))
	}
	if g.SubscriberBuffer < 1 {
		errs = append(errs, fmt.Sprintf("gameserver.subscriber_buffer must be >= 1 (got %d)", g.SubscriberBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateArena(a ArenaConfig) error {
	var errs []string
	if err := a.Settings().Validate(); err != nil {
		errs = append(errs, "arena: "+err.Error())
	}
	if a.OpponentLookback < 0 {
		errs = append(errs, fmt.Sprintf("arena.opponent_lookback must be >= 0 (got %d)", a.OpponentLookback))
	}
	if a.MatchTimeout < 0 {
		errs = append(errs, "arena.match_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ARENA_ prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "postgres")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("sqlite.path", "arena.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.max_matches", 0)
	v.SetDefault("gameserver.subscriber_buffer", 64)

	d := combat.DefaultSettings()
	v.SetDefault("arena.countdown", d.Countdown)
	v.SetDefault("arena.tick_interval", d.TickInterval)
	v.SetDefault("arena.regen_interval", d.RegenInterval)
	v.SetDefault("arena.aura_interval", d.AuraInterval)
	v.SetDefault("arena.poison_interval", d.PoisonInterval)
	v.SetDefault("arena.poison_decay", d.PoisonDecay)
	v.SetDefault("arena.poison_rate", d.PoisonRate)
	v.SetDefault("arena.burn_start", d.BurnStart)
	v.SetDefault("arena.burn_interval", d.BurnInterval)
	v.SetDefault("arena.burn_initial_damage", d.BurnInitialDamage)
	v.SetDefault("arena.burn_increment", d.BurnIncrement)
	v.SetDefault("arena.gold_per_round", d.GoldPerRound)
	v.SetDefault("arena.xp_per_round", d.XPPerRound)
	v.SetDefault("arena.xp_per_level", d.XPPerLevel)
	v.SetDefault("arena.max_dispatch_depth", d.MaxDispatchDepth)
	v.SetDefault("arena.opponent_lookback", 10)
	v.SetDefault("arena.match_timeout", "10m")

	v.SetDefault("content.dir", "content")
	v.SetDefault("content.script_instruction_limit", 100000)
}

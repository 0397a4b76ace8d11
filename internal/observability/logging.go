// Package observability builds the process logger and adapts combat events
// into structured log entries.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/autobattle/internal/config"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// EventLogger returns a Sink that writes every combat event to logger.
// Fight outcomes are logged at Info; everything else at Debug.
//
// Precondition: logger must be non-nil.
func EventLogger(logger *zap.Logger) combat.Sink {
	return combat.SinkFunc(func(e combat.Event) {
		level := zapcore.DebugLevel
		if e.Type == combat.EventEndBattle || e.Type == combat.EventGameOver {
			level = zapcore.InfoLevel
		}
		ce := logger.Check(level, "combat event")
		if ce == nil {
			return
		}
		ce.Write(EventFields(e)...)
	})
}

// EventFields renders e as zap fields, omitting empty values.
func EventFields(e combat.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("type", string(e.Type)),
		zap.String("session", e.SessionID),
		zap.Duration("at", e.At),
	}
	if e.CombatantID != "" {
		fields = append(fields, zap.String("combatant", e.CombatantID))
	}
	if e.AbilityID != 0 {
		fields = append(fields, zap.Int("ability", e.AbilityID))
	}
	if e.Trigger != "" {
		fields = append(fields, zap.String("trigger", string(e.Trigger)))
	}
	if e.Amount != 0 {
		fields = append(fields, zap.Float64("amount", e.Amount))
	}
	if e.Source != "" {
		fields = append(fields, zap.String("source", e.Source))
	}
	if e.Message != "" {
		fields = append(fields, zap.String("message", e.Message))
	}
	if e.Outcome != "" {
		fields = append(fields, zap.String("outcome", e.Outcome))
	}
	return fields
}

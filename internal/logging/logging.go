// Package logging builds the zap logger used across the pipeline.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and output format.
type Config struct {
	Level  string `mapstructure:"level"`  // debug, info, warn or error.
	Format string `mapstructure:"format"` // json or console.
}

// DefaultConfig logs info and above as JSON.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

// New builds a production logger for json output and a development logger
// for console output. verbose forces debug level.
func New(cfg Config, verbose bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

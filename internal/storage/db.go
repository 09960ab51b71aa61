// Package storage persists extracted track records in a relational store.
//
// Every backend exposes the same two tables, track_stats and track_points,
// which are dropped and recreated by Reset at the start of each ingestion run.
package storage

import (
	"context"
	"fmt"

	"trackqa/internal/registry"
	"trackqa/internal/track"
)

// Store is the relational store used by the loader and the document assembler.
type Store interface {
	// Reset drops and recreates both tables.
	Reset(ctx context.Context) error
	// InsertStats stores one statistics row and returns its id.
	InsertStats(ctx context.Context, s track.TrackStats) (int64, error)
	// InsertPoint stores one point row and returns its id.
	InsertPoint(ctx context.Context, p track.TrackPoint) (int64, error)
	// Stats returns every statistics row in insertion order.
	Stats(ctx context.Context) ([]track.TrackStats, error)
	// Points returns every point row in insertion order.
	Points(ctx context.Context) ([]track.TrackPoint, error)
	// Counts returns the row count of each table.
	Counts(ctx context.Context) (Counts, error)
	Close() error
}

// Counts holds table row counts.
type Counts struct {
	Stats  int64 `json:"track_stats"`
	Points int64 `json:"track_points"`
}

// Config selects and configures a backend.
type Config struct {
	Driver     string           `mapstructure:"driver"` // sqlite, postgres or clickhouse.
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

// DefaultConfig returns a configuration with default local settings.
func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		SQLite: SQLiteConfig{
			Path: "gpx_data.db",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "trackqa",
			User:     "trackqa",
			Password: "trackqa",
			SSLMode:  "disable",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "trackqa",
			User:     "default",
			Password: "",
		},
	}
}

// Opener opens a backend from configuration.
type Opener func(ctx context.Context, cfg Config) (Store, error)

var drivers = registry.New[Opener]("storage driver")

// Drivers lists the registered backend names.
func Drivers() []string {
	return drivers.Names()
}

// Open opens the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	open, err := drivers.Lookup(cfg.Driver)
	if err != nil {
		return nil, err
	}
	s, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Driver, err)
	}
	return s, nil
}

// nullable turns a nil pointer into an untyped nil so every driver binds NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"trackqa/internal/track"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Querier is the subset of pgx used by PostgresStore.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var postgresSchema = []string{
	`DROP TABLE IF EXISTS track_stats`,
	`DROP TABLE IF EXISTS track_points`,
	`CREATE TABLE track_stats (
		id                 BIGSERIAL PRIMARY KEY,
		distance           DOUBLE PRECISION,
		timer_time         INTEGER,
		total_elapsed_time INTEGER,
		moving_time        INTEGER,
		ascent             DOUBLE PRECISION,
		descent            DOUBLE PRECISION,
		calories           INTEGER,
		avg_heart_rate     INTEGER,
		avg_cadence        INTEGER
	)`,
	`CREATE TABLE track_points (
		id          BIGSERIAL PRIMARY KEY,
		ele         DOUBLE PRECISION,
		time        TEXT,
		temperature DOUBLE PRECISION,
		hr          INTEGER,
		cad         INTEGER
	)`,
}

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	q     Querier
	close func()
}

func init() {
	drivers.Register("postgres", func(ctx context.Context, cfg Config) (Store, error) {
		return OpenPostgres(ctx, cfg.Postgres)
	})
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	// Ingestion is sequential; one connection is all a run uses.
	poolCfg.MaxConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{q: pool, close: pool.Close}, nil
}

// NewPostgresStore wraps an existing Querier. The caller keeps ownership of q.
func NewPostgresStore(q Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

// Close closes the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Reset drops and recreates both tables.
func (s *PostgresStore) Reset(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
	}
	return nil
}

// InsertStats stores a statistics row.
func (s *PostgresStore) InsertStats(ctx context.Context, st track.TrackStats) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO track_stats (
			distance, timer_time, total_elapsed_time, moving_time,
			ascent, descent, calories, avg_heart_rate, avg_cadence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, st.Distance, st.TimerTime, st.TotalElapsedTime, st.MovingTime,
		st.Ascent, st.Descent, st.Calories, st.AvgHeartRate, st.AvgCadence).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert track stats: %w", err)
	}
	return id, nil
}

// InsertPoint stores a point row; nil fields become NULL.
func (s *PostgresStore) InsertPoint(ctx context.Context, p track.TrackPoint) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO track_points (ele, time, temperature, hr, cad)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, nullable(p.Elevation), nullable(p.Time), nullable(p.Temperature), nullable(p.HeartRate), nullable(p.Cadence)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert track point: %w", err)
	}
	return id, nil
}

// Stats returns all statistics rows ordered by id.
func (s *PostgresStore) Stats(ctx context.Context) ([]track.TrackStats, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, distance, timer_time, total_elapsed_time, moving_time,
		       ascent, descent, calories, avg_heart_rate, avg_cadence
		FROM track_stats ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query track stats: %w", err)
	}
	defer rows.Close()

	var out []track.TrackStats
	for rows.Next() {
		var st track.TrackStats
		if err := rows.Scan(&st.ID, &st.Distance, &st.TimerTime, &st.TotalElapsedTime, &st.MovingTime,
			&st.Ascent, &st.Descent, &st.Calories, &st.AvgHeartRate, &st.AvgCadence); err != nil {
			return nil, fmt.Errorf("scan track stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Points returns all point rows ordered by id.
func (s *PostgresStore) Points(ctx context.Context) ([]track.TrackPoint, error) {
	rows, err := s.q.Query(ctx, `SELECT id, ele, time, temperature, hr, cad FROM track_points ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query track points: %w", err)
	}
	defer rows.Close()

	var out []track.TrackPoint
	for rows.Next() {
		var p track.TrackPoint
		if err := rows.Scan(&p.ID, &p.Elevation, &p.Time, &p.Temperature, &p.HeartRate, &p.Cadence); err != nil {
			return nil, fmt.Errorf("scan track point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Counts returns the number of rows in each table.
func (s *PostgresStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.q.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM track_stats), (SELECT COUNT(*) FROM track_points)
	`).Scan(&c.Stats, &c.Points)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

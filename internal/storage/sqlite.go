package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"trackqa/internal/track"
)

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// sqliteSchema drops and recreates both tables.
var sqliteSchema = []string{
	`DROP TABLE IF EXISTS track_stats`,
	`DROP TABLE IF EXISTS track_points`,
	`CREATE TABLE track_stats (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		distance           REAL,
		timer_time         INTEGER,
		total_elapsed_time INTEGER,
		moving_time        INTEGER,
		ascent             REAL,
		descent            REAL,
		calories           INTEGER,
		avg_heart_rate     INTEGER,
		avg_cadence        INTEGER
	)`,
	`CREATE TABLE track_points (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		ele         REAL,
		time        TEXT,
		temperature REAL,
		hr          INTEGER,
		cad         INTEGER
	)`,
}

// SQLiteStore is the default Store, backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func init() {
	drivers.Register("sqlite", func(_ context.Context, cfg Config) (Store, error) {
		return OpenSQLite(cfg.SQLite.Path)
	})
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and writes ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Reset drops and recreates both tables.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
	}
	return nil
}

// InsertStats stores a statistics row.
func (s *SQLiteStore) InsertStats(ctx context.Context, st track.TrackStats) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO track_stats (
			distance, timer_time, total_elapsed_time, moving_time,
			ascent, descent, calories, avg_heart_rate, avg_cadence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.Distance, st.TimerTime, st.TotalElapsedTime, st.MovingTime,
		st.Ascent, st.Descent, st.Calories, st.AvgHeartRate, st.AvgCadence)
	if err != nil {
		return 0, fmt.Errorf("insert track stats: %w", err)
	}
	return res.LastInsertId()
}

// InsertPoint stores a point row; nil fields become NULL.
func (s *SQLiteStore) InsertPoint(ctx context.Context, p track.TrackPoint) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO track_points (ele, time, temperature, hr, cad)
		VALUES (?, ?, ?, ?, ?)
	`, nullable(p.Elevation), nullable(p.Time), nullable(p.Temperature), nullable(p.HeartRate), nullable(p.Cadence))
	if err != nil {
		return 0, fmt.Errorf("insert track point: %w", err)
	}
	return res.LastInsertId()
}

// Stats returns all statistics rows ordered by id.
func (s *SQLiteStore) Stats(ctx context.Context) ([]track.TrackStats, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStore) Points(ctx context.Context) ([]track.TrackPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ele, time, temperature, hr, cad FROM track_points ORDER BY id`)
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
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM track_stats), (SELECT COUNT(*) FROM track_points)
	`).Scan(&c.Stats, &c.Points)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"trackqa/internal/track"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// ClickHouse has no auto-increment, so ids are assigned by the store and the
// tables are ordered by them to keep insertion order on read.
var clickhouseSchema = []string{
	`DROP TABLE IF EXISTS track_stats`,
	`DROP TABLE IF EXISTS track_points`,
	`CREATE TABLE track_stats (
		id                 UInt64,
		distance           Float64,
		timer_time         Int64,
		total_elapsed_time Int64,
		moving_time        Int64,
		ascent             Float64,
		descent            Float64,
		calories           Int64,
		avg_heart_rate     Int64,
		avg_cadence        Int64
	)
	ENGINE = MergeTree()
	ORDER BY id`,
	`CREATE TABLE track_points (
		id          UInt64,
		ele         Nullable(Float64),
		time        Nullable(String),
		temperature Nullable(Float64),
		hr          Nullable(Int64),
		cad         Nullable(Int64)
	)
	ENGINE = MergeTree()
	ORDER BY id`,
}

// ClickHouseStore is a Store backed by ClickHouse.
type ClickHouseStore struct {
	conn driver.Conn

	statsID uint64 // Last assigned track_stats id.
	pointID uint64 // Last assigned track_points id.
}

func init() {
	drivers.Register("clickhouse", func(ctx context.Context, cfg Config) (Store, error) {
		return OpenClickHouse(ctx, cfg.ClickHouse)
	})
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return NewClickHouseStore(ctx, conn)
}

// NewClickHouseStore wraps an open connection. Id counters continue from the
// highest ids already stored so reads stay in insertion order.
func NewClickHouseStore(ctx context.Context, conn driver.Conn) (*ClickHouseStore, error) {
	s := &ClickHouseStore{conn: conn}
	for table, counter := range map[string]*uint64{"track_stats": &s.statsID, "track_points": &s.pointID} {
		var exists uint8
		if err := conn.QueryRow(ctx, `EXISTS TABLE `+table).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check %s: %w", table, err)
		}
		if exists == 0 {
			continue
		}
		var maxID uint64
		if err := conn.QueryRow(ctx, `SELECT max(id) FROM `+table).Scan(&maxID); err != nil {
			return nil, fmt.Errorf("max id %s: %w", table, err)
		}
		*counter = maxID
	}
	return s, nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

// Reset drops and recreates both tables.
func (s *ClickHouseStore) Reset(ctx context.Context) error {
	for _, q := range clickhouseSchema {
		if err := s.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
	}
	s.statsID = 0
	s.pointID = 0
	return nil
}

// InsertStats stores a statistics row.
func (s *ClickHouseStore) InsertStats(ctx context.Context, st track.TrackStats) (int64, error) {
	s.statsID++
	id := s.statsID
	err := s.conn.Exec(ctx, `
		INSERT INTO track_stats (
			id, distance, timer_time, total_elapsed_time, moving_time,
			ascent, descent, calories, avg_heart_rate, avg_cadence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, st.Distance, st.TimerTime, st.TotalElapsedTime, st.MovingTime,
		st.Ascent, st.Descent, st.Calories, st.AvgHeartRate, st.AvgCadence)
	if err != nil {
		return 0, fmt.Errorf("insert track stats: %w", err)
	}
	return int64(id), nil
}

// InsertPoint stores a point row; nil fields become NULL.
func (s *ClickHouseStore) InsertPoint(ctx context.Context, p track.TrackPoint) (int64, error) {
	s.pointID++
	id := s.pointID
	err := s.conn.Exec(ctx, `
		INSERT INTO track_points (id, ele, time, temperature, hr, cad)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, nullable(p.Elevation), nullable(p.Time), nullable(p.Temperature), nullable(p.HeartRate), nullable(p.Cadence))
	if err != nil {
		return 0, fmt.Errorf("insert track point: %w", err)
	}
	return int64(id), nil
}

// Stats returns all statistics rows ordered by id.
func (s *ClickHouseStore) Stats(ctx context.Context) ([]track.TrackStats, error) {
	rows, err := s.conn.Query(ctx, `
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
		var (
			id uint64
			st track.TrackStats
		)
		if err := rows.Scan(&id, &st.Distance, &st.TimerTime, &st.TotalElapsedTime, &st.MovingTime,
			&st.Ascent, &st.Descent, &st.Calories, &st.AvgHeartRate, &st.AvgCadence); err != nil {
			return nil, fmt.Errorf("scan track stats: %w", err)
		}
		st.ID = int64(id)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Points returns all point rows ordered by id.
func (s *ClickHouseStore) Points(ctx context.Context) ([]track.TrackPoint, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, ele, time, temperature, hr, cad FROM track_points ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query track points: %w", err)
	}
	defer rows.Close()

	var out []track.TrackPoint
	for rows.Next() {
		var (
			id uint64
			p  track.TrackPoint
		)
		if err := rows.Scan(&id, &p.Elevation, &p.Time, &p.Temperature, &p.HeartRate, &p.Cadence); err != nil {
			return nil, fmt.Errorf("scan track point: %w", err)
		}
		p.ID = int64(id)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Counts returns the number of rows in each table.
func (s *ClickHouseStore) Counts(ctx context.Context) (Counts, error) {
	var stats, points uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM track_stats`).Scan(&stats); err != nil {
		return Counts{}, fmt.Errorf("count track stats: %w", err)
	}
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM track_points`).Scan(&points); err != nil {
		return Counts{}, fmt.Errorf("count track points: %w", err)
	}
	return Counts{Stats: int64(stats), Points: int64(points)}, nil
}

package storage

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackqa/internal/track"
)

// setupTestClickHouse returns nil if no ClickHouse server is reachable.
func setupTestClickHouse(t *testing.T) *ClickHouseStore {
	t.Helper()

	cfg := DefaultConfig().ClickHouse
	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		cfg.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("CLICKHOUSE_PORT")); err == nil {
		cfg.Port = port
	}
	if db := os.Getenv("CLICKHOUSE_DB"); db != "" {
		cfg.Database = db
	}

	s, err := OpenClickHouse(context.Background(), cfg)
	if err != nil {
		return nil
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestClickHouseRoundTrip(t *testing.T) {
	s := setupTestClickHouse(t)
	if s == nil {
		t.Skip("No ClickHouse connection available")
	}
	ctx := context.Background()

	require.NoError(t, s.Reset(ctx))

	_, err := s.InsertStats(ctx, track.TrackStats{Distance: 5000, Ascent: 300, Calories: 450})
	require.NoError(t, err)
	for i := range 3 {
		p := track.TrackPoint{Elevation: track.Ptr(float64(i))}
		if i == 1 {
			p.HeartRate = track.Ptr(int64(120))
		}
		_, err := s.InsertPoint(ctx, p)
		require.NoError(t, err)
	}

	points, err := s.Points(ctx)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for i, p := range points {
		assert.Equal(t, int64(i+1), p.ID)
		assert.Equal(t, float64(i), *p.Elevation)
	}
	assert.Nil(t, points[0].HeartRate)
	assert.Equal(t, int64(120), *points[1].HeartRate)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Stats: 1, Points: 3}, c)

	require.NoError(t, s.Reset(ctx))
	c, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)
}

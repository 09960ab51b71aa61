package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackqa/internal/track"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "gpx_data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Reset(context.Background()))
	return s
}

func TestSQLiteStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	in := track.TrackStats{
		Distance: 5012.75, TimerTime: 3600, TotalElapsedTime: 3900, MovingTime: 3400,
		Ascent: 300.5, Descent: 290.25, Calories: 450, AvgHeartRate: 132, AvgCadence: 55,
	}
	id, err := s.InsertStats(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	in.ID = 1
	if diff := cmp.Diff(in, got[0]); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLitePointsKeepUnknowns(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	in := []track.TrackPoint{
		{Elevation: track.Ptr(1200.5), Time: track.Ptr("2024-06-01T07:00:00Z"), Temperature: track.Ptr(18.5),
			HeartRate: track.Ptr(int64(0)), Cadence: track.Ptr(int64(62))},
		{Elevation: track.Ptr(1201.0)},
		{},
	}
	for _, p := range in {
		_, err := s.InsertPoint(ctx, p)
		require.NoError(t, err)
	}

	got, err := s.Points(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i := range in {
		in[i].ID = int64(i + 1)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	// A measured zero heart rate must not read back as unknown.
	require.NotNil(t, got[0].HeartRate)
	assert.Equal(t, int64(0), *got[0].HeartRate)
	assert.Nil(t, got[2].HeartRate)
}

func TestSQLiteResetEmptiesTables(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	_, err := s.InsertStats(ctx, track.TrackStats{Distance: 1})
	require.NoError(t, err)
	_, err = s.InsertPoint(ctx, track.TrackPoint{})
	require.NoError(t, err)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Stats: 1, Points: 1}, c)

	require.NoError(t, s.Reset(ctx))
	c, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)

	// Ids restart after a reset.
	id, err := s.InsertPoint(ctx, track.TrackPoint{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "oracle"
	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestOpenSQLiteByName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "x.db")

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)
}

func TestDrivers(t *testing.T) {
	assert.Equal(t, []string{"clickhouse", "postgres", "sqlite"}, Drivers())
}

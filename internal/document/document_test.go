package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackqa/internal/track"
)

type fakeReader struct {
	stats     []track.TrackStats
	points    []track.TrackPoint
	statsErr  error
	pointsErr error
}

func (f fakeReader) Stats(context.Context) ([]track.TrackStats, error) {
	return f.stats, f.statsErr
}

func (f fakeReader) Points(context.Context) ([]track.TrackPoint, error) {
	return f.points, f.pointsErr
}

func makePoints(n int) []track.TrackPoint {
	pts := make([]track.TrackPoint, n)
	for i := range pts {
		pts[i] = track.TrackPoint{
			ID:        int64(i + 1),
			Elevation: track.Ptr(float64(i)),
			HeartRate: track.Ptr(int64(120)),
		}
	}
	return pts
}

func TestStatsDocument(t *testing.T) {
	doc := StatsDocument(track.TrackStats{
		Distance:         5000,
		TimerTime:        1800,
		TotalElapsedTime: 1900,
		MovingTime:       1750,
		Ascent:           120.5,
		Descent:          118.25,
		Calories:         450,
		AvgHeartRate:     142,
		AvgCadence:       85,
	})

	want := "**Track Statistics**:\n\n" +
		"Distance: 5000 meters\n" +
		"Timer Time: 1800 seconds\n" +
		"Total Elapsed Time: 1900 seconds\n" +
		"Moving Time: 1750 seconds\n" +
		"Ascent: 120.5 meters\n" +
		"Descent: 118.25 meters\n" +
		"Calories: 450\n" +
		"Average Heart Rate: 142 bpm\n" +
		"Average Cadence: 85 rpm\n"
	assert.Equal(t, want, doc.Text)
	assert.Equal(t, SourceStats, doc.Source())
}

func TestStatsValueMatchesDocument(t *testing.T) {
	s := track.TrackStats{Distance: 5000.5, MovingTime: 60, Ascent: 300, Calories: 450, AvgHeartRate: 140}
	text := StatsDocument(s).Text

	for _, label := range []string{
		LabelDistance, LabelTimerTime, LabelTotalElapsedTime, LabelMovingTime,
		LabelAscent, LabelDescent, LabelCalories, LabelAvgHeartRate, LabelAvgCadence,
	} {
		v, ok := StatsValue(s, label)
		require.True(t, ok, label)
		assert.Contains(t, text, label+": "+v+"\n")
	}

	_, ok := StatsValue(s, "Speed")
	assert.False(t, ok)
}

func TestPointLine(t *testing.T) {
	tests := []struct {
		name string
		p    track.TrackPoint
		want string
	}{
		{
			name: "all fields",
			p: track.TrackPoint{
				Elevation:   track.Ptr(10.5),
				Time:        track.Ptr("2024-05-01T07:00:00Z"),
				Temperature: track.Ptr(21.0),
				HeartRate:   track.Ptr(int64(130)),
				Cadence:     track.Ptr(int64(80)),
			},
			want: "Elevation: 10.5, Time: 2024-05-01T07:00:00Z, Temperature: 21, Heart Rate: 130, Cadence: 80",
		},
		{
			name: "nothing measured",
			want: "Elevation: unknown, Time: unknown, Temperature: unknown, Heart Rate: unknown, Cadence: unknown",
		},
		{
			name: "zero is not unknown",
			p:    track.TrackPoint{Elevation: track.Ptr(0.0), HeartRate: track.Ptr(int64(0))},
			want: "Elevation: 0, Time: unknown, Temperature: unknown, Heart Rate: 0, Cadence: unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointLine(tt.p))
		})
	}
}

func TestAssembleStatsAndBatches(t *testing.T) {
	r := fakeReader{
		stats:  []track.TrackStats{{ID: 1, Distance: 5000, Ascent: 300, Calories: 450}},
		points: makePoints(250),
	}

	a, err := Assembler{}.Assemble(context.Background(), r)
	require.NoError(t, err)

	require.Len(t, a.Documents, 4)
	require.NotNil(t, a.Stats)
	assert.Equal(t, 5000.0, a.Stats.Distance)
	assert.Equal(t, 250, a.PointRows)

	assert.Equal(t, SourceStats, a.Documents[0].Source())
	for i, wantLines := range []int{100, 100, 50} {
		d := a.Documents[i+1]
		assert.Equal(t, SourcePoints, d.Source())
		assert.Equal(t, i, d.Metadata[KeyChunk])
		assert.Len(t, strings.Split(d.Text, "\n"), wantLines)
	}

	sd, ok := a.StatsDocument()
	require.True(t, ok)
	assert.Contains(t, sd.Text, "Distance: 5000 meters")
}

func TestAssembleFirstStatsRowWins(t *testing.T) {
	r := fakeReader{stats: []track.TrackStats{{ID: 1, Calories: 100}, {ID: 2, Calories: 200}}}

	a, err := Assembler{}.Assemble(context.Background(), r)
	require.NoError(t, err)

	require.Len(t, a.Documents, 1)
	assert.Equal(t, int64(100), a.Stats.Calories)
	assert.Contains(t, a.Documents[0].Text, "Calories: 100\n")
}

func TestAssembleEmpty(t *testing.T) {
	a, err := Assembler{}.Assemble(context.Background(), fakeReader{})
	require.NoError(t, err)

	assert.Empty(t, a.Documents)
	assert.Nil(t, a.Stats)
	_, ok := a.StatsDocument()
	assert.False(t, ok)
}

func TestAssembleCustomBatchSize(t *testing.T) {
	a, err := Assembler{BatchSize: 4}.Assemble(context.Background(), fakeReader{points: makePoints(10)})
	require.NoError(t, err)

	require.Len(t, a.Documents, 3)
	assert.Len(t, strings.Split(a.Documents[2].Text, "\n"), 2)
}

func TestAssembleReadErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := Assembler{}.Assemble(context.Background(), fakeReader{statsErr: boom})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "read track stats")

	_, err = Assembler{}.Assemble(context.Background(), fakeReader{pointsErr: boom})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "read track points")
}

func TestCloneIsIndependent(t *testing.T) {
	d := Document{Text: "x", Metadata: map[string]any{KeySource: SourcePoints}}
	c := d.Clone()
	c.Metadata[KeySubChunk] = 1

	_, ok := d.Metadata[KeySubChunk]
	assert.False(t, ok)
	assert.Equal(t, SourcePoints, c.Source())
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackqa/internal/document"
	"trackqa/internal/loader"
)

const sampleTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1"
     xmlns:gpxtrkx="http://www.garmin.com/xmlschemas/TrackStatsExtension/v1"
     xmlns:gpxtpx="http://www.garmin.com/xmlschemas/TrackPointExtension/v2">
  <trk>
    <extensions>
      <gpxtrkx:TrackStatsExtension>
        <gpxtrkx:Distance>5000</gpxtrkx:Distance>
        <gpxtrkx:Ascent>300</gpxtrkx:Ascent>
        <gpxtrkx:Calories>450</gpxtrkx:Calories>
      </gpxtrkx:TrackStatsExtension>
    </extensions>
    <trkseg>
      <trkpt lat="46.1" lon="7.2">
        <ele>1500.5</ele>
        <time>2024-06-01T07:00:00Z</time>
        <extensions>
          <gpxtpx:TrackPointExtension>
            <gpxtpx:atemp>12</gpxtpx:atemp>
            <gpxtpx:hr>121</gpxtpx:hr>
            <gpxtpx:cad>80</gpxtpx:cad>
          </gpxtpx:TrackPointExtension>
        </extensions>
      </trkpt>
      <trkpt lat="46.2" lon="7.3"><ele>1502</ele></trkpt>
    </trkseg>
  </trk>
</gpx>`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestIngestThenDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hike.xml"), []byte(sampleTrack), 0o644))
	db := filepath.Join(t.TempDir(), "gpx_data.db")

	var sum loader.Summary
	require.NoError(t, json.Unmarshal([]byte(run(t, "ingest", "--dir", dir, "--db", db)), &sum))
	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, 1, sum.StatsInserted)
	assert.Equal(t, 2, sum.PointsInserted)

	// A second run replaces rather than appends.
	require.NoError(t, json.Unmarshal([]byte(run(t, "ingest", "--dir", dir, "--db", db)), &sum))
	assert.Equal(t, 2, sum.PointsInserted)

	outFile := filepath.Join(t.TempDir(), "docs.json")
	run(t, "documents", "--db", db, "--output", outFile)
	outPath = ""

	raw, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var docs []document.Document
	require.NoError(t, json.Unmarshal(raw, &docs))

	require.Len(t, docs, 2)
	assert.Equal(t, document.SourceStats, docs[0].Source())
	assert.Contains(t, docs[0].Text, "Distance: 5000 meters\n")
	assert.Equal(t, document.SourcePoints, docs[1].Source())
	assert.Equal(t,
		"Elevation: 1500.5, Time: 2024-06-01T07:00:00Z, Temperature: 12, Heart Rate: 121, Cadence: 80\n"+
			"Elevation: 1502, Time: unknown, Temperature: unknown, Heart Rate: unknown, Cadence: unknown",
		docs[1].Text)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("TRACKQA_CHUNKER_OVERLAP", "5000")
	rootCmd.SetArgs([]string{"ingest", "--db", filepath.Join(t.TempDir(), "x.db")})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, rootCmd.Execute(), "invalid configuration")
}

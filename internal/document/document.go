// Package document renders stored track records as text documents for indexing.
package document

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"trackqa/internal/track"
)

// Metadata keys and sources attached to documents.
const (
	KeySource   = "source"
	KeyChunk    = "chunk"
	KeySubChunk = "sub_chunk"

	SourceStats  = "track_stats"
	SourcePoints = "track_points"
)

// DefaultBatchSize is the number of point rows rendered into one document.
const DefaultBatchSize = 100

// Unknown is rendered for point fields that were not measured.
const Unknown = "unknown"

// Document is a text body plus provenance metadata.
type Document struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Source returns the document's source tag, or "" when unset.
func (d Document) Source() string {
	s, _ := d.Metadata[KeySource].(string)
	return s
}

// Clone returns a copy whose metadata map can be modified independently.
func (d Document) Clone() Document {
	md := make(map[string]any, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		md[k] = v
	}
	return Document{Text: d.Text, Metadata: md}
}

// Reader is the part of storage.Store the assembler needs.
type Reader interface {
	Stats(ctx context.Context) ([]track.TrackStats, error)
	Points(ctx context.Context) ([]track.TrackPoint, error)
}

// Assembly is the result of assembling a store's contents.
type Assembly struct {
	// Documents holds the statistics document (if any) followed by the point
	// batch documents in order.
	Documents []Document
	// Stats is the record behind the statistics document, nil when there is none.
	Stats *track.TrackStats
	// PointRows is the number of point rows read.
	PointRows int
}

// StatsDocument returns the statistics document, if one was assembled.
func (a Assembly) StatsDocument() (Document, bool) {
	for _, d := range a.Documents {
		if d.Source() == SourceStats {
			return d, true
		}
	}
	return Document{}, false
}

// Assembler turns store rows into documents.
type Assembler struct {
	BatchSize int // Point rows per document; DefaultBatchSize when <= 0.
}

// Assemble reads both tables and renders them. Only the first statistics row
// is used when several files contributed one.
func (a Assembler) Assemble(ctx context.Context, r Reader) (Assembly, error) {
	var out Assembly

	stats, err := r.Stats(ctx)
	if err != nil {
		return Assembly{}, fmt.Errorf("read track stats: %w", err)
	}
	if len(stats) > 0 {
		st := stats[0]
		out.Stats = &st
		out.Documents = append(out.Documents, StatsDocument(st))
	}

	points, err := r.Points(ctx)
	if err != nil {
		return Assembly{}, fmt.Errorf("read track points: %w", err)
	}
	out.PointRows = len(points)
	out.Documents = append(out.Documents, PointDocuments(points, a.BatchSize)...)

	return out, nil
}

// StatsDocument renders a statistics row as a label/value block.
func StatsDocument(s track.TrackStats) Document {
	var b strings.Builder
	b.WriteString("**Track Statistics**:\n\n")
	fmt.Fprintf(&b, "%s: %s meters\n", LabelDistance, formatFloat(s.Distance))
	fmt.Fprintf(&b, "%s: %d seconds\n", LabelTimerTime, s.TimerTime)
	fmt.Fprintf(&b, "%s: %d seconds\n", LabelTotalElapsedTime, s.TotalElapsedTime)
	fmt.Fprintf(&b, "%s: %d seconds\n", LabelMovingTime, s.MovingTime)
	fmt.Fprintf(&b, "%s: %s meters\n", LabelAscent, formatFloat(s.Ascent))
	fmt.Fprintf(&b, "%s: %s meters\n", LabelDescent, formatFloat(s.Descent))
	fmt.Fprintf(&b, "%s: %d\n", LabelCalories, s.Calories)
	fmt.Fprintf(&b, "%s: %d bpm\n", LabelAvgHeartRate, s.AvgHeartRate)
	fmt.Fprintf(&b, "%s: %d rpm\n", LabelAvgCadence, s.AvgCadence)

	return Document{
		Text:     b.String(),
		Metadata: map[string]any{KeySource: SourceStats},
	}
}

// Labels used in the statistics document.
const (
	LabelDistance         = "Distance"
	LabelTimerTime        = "Timer Time"
	LabelTotalElapsedTime = "Total Elapsed Time"
	LabelMovingTime       = "Moving Time"
	LabelAscent           = "Ascent"
	LabelDescent          = "Descent"
	LabelCalories         = "Calories"
	LabelAvgHeartRate     = "Average Heart Rate"
	LabelAvgCadence       = "Average Cadence"
)

// StatsValue returns the value rendered after label in StatsDocument, without
// the label itself. ok is false for labels the document does not contain.
func StatsValue(s track.TrackStats, label string) (value string, ok bool) {
	switch label {
	case LabelDistance:
		return formatFloat(s.Distance) + " meters", true
	case LabelTimerTime:
		return strconv.FormatInt(s.TimerTime, 10) + " seconds", true
	case LabelTotalElapsedTime:
		return strconv.FormatInt(s.TotalElapsedTime, 10) + " seconds", true
	case LabelMovingTime:
		return strconv.FormatInt(s.MovingTime, 10) + " seconds", true
	case LabelAscent:
		return formatFloat(s.Ascent) + " meters", true
	case LabelDescent:
		return formatFloat(s.Descent) + " meters", true
	case LabelCalories:
		return strconv.FormatInt(s.Calories, 10), true
	case LabelAvgHeartRate:
		return strconv.FormatInt(s.AvgHeartRate, 10) + " bpm", true
	case LabelAvgCadence:
		return strconv.FormatInt(s.AvgCadence, 10) + " rpm", true
	}
	return "", false
}

// PointDocuments groups points into batches of batchSize rows, one line per
// point, tagged with the zero-based batch index.
func PointDocuments(points []track.TrackPoint, batchSize int) []Document {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var docs []Document
	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))

		lines := make([]string, 0, end-start)
		for _, p := range points[start:end] {
			lines = append(lines, PointLine(p))
		}
		docs = append(docs, Document{
			Text: strings.Join(lines, "\n"),
			Metadata: map[string]any{
				KeySource: SourcePoints,
				KeyChunk:  start / batchSize,
			},
		})
	}
	return docs
}

// PointLine renders one point; unmeasured fields read "unknown".
func PointLine(p track.TrackPoint) string {
	return fmt.Sprintf("Elevation: %s, Time: %s, Temperature: %s, Heart Rate: %s, Cadence: %s",
		optFloat(p.Elevation), optString(p.Time), optFloat(p.Temperature), optInt(p.HeartRate), optInt(p.Cadence))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func optFloat(p *float64) string {
	if p == nil {
		return Unknown
	}
	return formatFloat(*p)
}

func optInt(p *int64) string {
	if p == nil {
		return Unknown
	}
	return strconv.FormatInt(*p, 10)
}

func optString(p *string) string {
	if p == nil {
		return Unknown
	}
	return *p
}

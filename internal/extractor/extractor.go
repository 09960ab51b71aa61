// Package extractor pulls track statistics and per-point sensor fields out of a
// parsed GPX tree. It matches elements by local name only, so the same code
// handles every vendor namespace, and it is database-agnostic: callers decide
// what to persist and what to log.
package extractor

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"trackqa/internal/gpx"
	"trackqa/internal/track"
)

// Element local names the walk matches on.
const (
	StatsMarker    = "TrackStatsExtension"
	PointMarker    = "trkpt"
	ExtensionsTag  = "extensions"
	PointExtMarker = "TrackPointExtension"
)

// statsPointIndex marks a FieldError raised by the statistics block.
const statsPointIndex = -1

const (
	elevationTag     = "ele"
	timeTag          = "time"
	heartRateTag     = "hr"
	cadenceTag       = "cad"
	temperatureTag   = "atemp"
	temperatureAlias = "Temperature"
)

// FieldError records a value that could not be read as a number.
type FieldError struct {
	Point int    // Zero-based point index, or -1 for the statistics block.
	Field string // Local tag name of the offending element.
	Value string // Raw text.
	Err   error
}

func (e *FieldError) Error() string {
	if e.Point == statsPointIndex {
		return fmt.Sprintf("track stats field %s=%q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("track point %d field %s=%q: %v", e.Point, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ExtractedData is everything read from one source file.
type ExtractedData struct {
	// Stats is nil when the file has no statistics block or when StatsErr is set.
	Stats *track.TrackStats
	// StatsErr reports malformed numbers in the statistics block. It never
	// affects Points.
	StatsErr error
	// Points in document order.
	Points []track.TrackPoint
	// FieldErrors lists point fields recorded as unknown because their text
	// was not numeric.
	FieldErrors []*FieldError
}

// Extract reads statistics and points from a parsed document.
func Extract(root *gpx.Node) ExtractedData {
	var data ExtractedData
	if root == nil {
		return data
	}
	data.Stats, data.StatsErr = ExtractStats(root)
	data.Points, data.FieldErrors = ExtractPoints(root)
	return data
}

// ExtractStats locates the first statistics block in document order and
// converts its direct children. It returns (nil, nil) when there is no block.
// Fields missing from the block are zero; any malformed value fails the whole
// record.
func ExtractStats(root *gpx.Node) (*track.TrackStats, error) {
	block := root.First(StatsMarker)
	if block == nil {
		return nil, nil
	}

	data := make(map[string]string, len(block.Children))
	for _, child := range block.Children {
		data[child.Name()] = child.Text
	}

	var (
		s    track.TrackStats
		errs []error
	)
	floatField := func(dst *float64, key string) {
		v, err := parseFloat(data[key])
		if err != nil {
			errs = append(errs, &FieldError{Point: statsPointIndex, Field: key, Value: data[key], Err: err})
			return
		}
		*dst = v
	}
	intField := func(dst *int64, key string) {
		v, err := parseInt(data[key])
		if err != nil {
			errs = append(errs, &FieldError{Point: statsPointIndex, Field: key, Value: data[key], Err: err})
			return
		}
		*dst = v
	}

	floatField(&s.Distance, "Distance")
	intField(&s.TimerTime, "TimerTime")
	intField(&s.TotalElapsedTime, "TotalElapsedTime")
	intField(&s.MovingTime, "MovingTime")
	floatField(&s.Ascent, "Ascent")
	floatField(&s.Descent, "Descent")
	intField(&s.Calories, "Calories")
	intField(&s.AvgHeartRate, "AvgHeartRate")
	intField(&s.AvgCadence, "AvgCadence")

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &s, nil
}

// ExtractPoints converts every point element in document order.
func ExtractPoints(root *gpx.Node) ([]track.TrackPoint, []*FieldError) {
	var (
		points []track.TrackPoint
		ferrs  []*FieldError
	)
	for el := range root.All() {
		if el.Name() != PointMarker {
			continue
		}
		p, errs := extractPoint(len(points), el)
		points = append(points, p)
		ferrs = append(ferrs, errs...)
	}
	return points, ferrs
}

// extractPoint reads ele and time from direct children, and temperature, heart
// rate and cadence from extensions/TrackPointExtension/*. Nothing outside that
// shape is considered.
func extractPoint(idx int, el *gpx.Node) (track.TrackPoint, []*FieldError) {
	var (
		p    track.TrackPoint
		errs []*FieldError
	)
	optFloat := func(n *gpx.Node) *float64 {
		v, err := optionalFloat(n.Text)
		if err != nil {
			errs = append(errs, &FieldError{Point: idx, Field: n.Name(), Value: n.Text, Err: err})
		}
		return v
	}
	optInt := func(n *gpx.Node) *int64 {
		v, err := optionalInt(n.Text)
		if err != nil {
			errs = append(errs, &FieldError{Point: idx, Field: n.Name(), Value: n.Text, Err: err})
		}
		return v
	}

	for _, child := range el.Children {
		switch child.Name() {
		case elevationTag:
			p.Elevation = optFloat(child)
		case timeTag:
			p.Time = nil
			if child.Text != "" {
				p.Time = track.Ptr(child.Text)
			}
		case ExtensionsTag:
			for _, ext := range child.Children {
				if ext.Name() != PointExtMarker {
					continue
				}
				for _, leaf := range ext.Children {
					switch leaf.Name() {
					case temperatureTag, temperatureAlias:
						p.Temperature = optFloat(leaf)
					case heartRateTag:
						p.HeartRate = optInt(leaf)
					case cadenceTag:
						p.Cadence = optInt(leaf)
					}
				}
			}
		}
	}
	return p, errs
}

// parseFloat treats empty text as zero.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}

// parseInt treats empty text as zero and truncates decimals toward zero.
func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, fmt.Errorf("out of range")
	}
	return int64(f), nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseInt(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

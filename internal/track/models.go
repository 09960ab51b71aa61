// Package track defines the relational record types produced from GPX recordings.
package track

// TrackStats holds trip-level aggregates from a TrackStatsExtension block.
// Absent source elements leave the corresponding field at zero.
type TrackStats struct {
	ID               int64   `json:"id,omitempty"`
	Distance         float64 `json:"distance"`           // Metres.
	TimerTime        int64   `json:"timer_time"`         // Seconds.
	TotalElapsedTime int64   `json:"total_elapsed_time"` // Seconds.
	MovingTime       int64   `json:"moving_time"`        // Seconds.
	Ascent           float64 `json:"ascent"`             // Metres.
	Descent          float64 `json:"descent"`            // Metres.
	Calories         int64   `json:"calories"`
	AvgHeartRate     int64   `json:"avg_heart_rate"` // bpm.
	AvgCadence       int64   `json:"avg_cadence"`    // rpm.
}

// TrackPoint is one recorded sample along a track.
// A nil field means the value was not measured (absent, empty, or unreadable);
// it is never the same thing as a measured zero.
type TrackPoint struct {
	ID          int64    `json:"id,omitempty"`
	Elevation   *float64 `json:"ele,omitempty"`
	Time        *string  `json:"time,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	HeartRate   *int64   `json:"hr,omitempty"`
	Cadence     *int64   `json:"cad,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

package session

import (
	"backend-skitrack/internal/metrics"
	"backend-skitrack/internal/motion"
	"backend-skitrack/internal/track"
)

// Summary is the immutable record of a finished session. Units: km, km/h, meters, seconds.
type Summary struct {
	StartAtMs     int64   `json:"start_at_ms"`
	EndAtMs       int64   `json:"end_at_ms"`
	DurationSec   int64   `json:"duration_sec"`
	DistanceKm    float64 `json:"distance_km"`
	TopSpeedKmh   float64 `json:"top_speed_kmh"`
	AvgSpeedKmh   float64 `json:"avg_speed_kmh"`
	VerticalDropM float64 `json:"vertical_drop_m"`
}

// LiveState is published after every processed sample.
type LiveState struct {
	IsRecording     bool        `json:"is_recording"`
	DurationSec     int64       `json:"duration_sec"`
	DistanceKm      float64     `json:"distance_km"`
	CurrentSpeedKmh float64     `json:"current_speed_kmh"`
	TopSpeedKmh     float64     `json:"top_speed_kmh"`
	VerticalDropM   float64     `json:"vertical_drop_m"`
	MotionMode      motion.Mode `json:"motion_mode"`
	Rate            string      `json:"rate"`
}

// Observer receives snapshots. Calls happen on the ingesting goroutine, so
// implementations must not block.
type Observer interface {
	PublishLive(sessionID string, live LiveState)
	PublishTrack(sessionID string, segments []track.Segment)
}

type Options struct {
	Metrics   metrics.Config
	Motion    motion.Config
	Track     track.Config
	Clock     func() int64
	Observers []Observer
}

// DefaultOptions uses the package defaults of every pipeline stage.
func DefaultOptions() Options {
	return Options{
		Metrics: metrics.DefaultConfig(),
		Motion:  motion.DefaultConfig(),
		Track:   track.DefaultConfig(),
	}
}

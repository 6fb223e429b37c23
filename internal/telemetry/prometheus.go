// Package telemetry exports pipeline counters to Prometheus.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesTotal counts consumed samples by admission outcome.
	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skitrack_samples_total",
			Help: "Samples consumed by the metrics engine, by outcome",
		},
		[]string{"outcome"},
	)

	// ModeTransitions counts classifier mode changes.
	ModeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skitrack_mode_transitions_total",
			Help: "Motion mode transitions",
		},
		[]string{"from", "to"},
	)

	// RateSwitches counts sample source reconfigurations.
	RateSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skitrack_rate_switches_total",
			Help: "Sampling rate changes requested from the sample source",
		},
		[]string{"rate"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skitrack_active_sessions",
			Help: "Sessions currently recording",
		},
	)

	// SessionDistance observes the distance of finished sessions.
	SessionDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skitrack_session_distance_km",
			Help:    "Distance of completed sessions in km",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	SampleLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skitrack_sample_processing_seconds",
			Help:    "Time spent processing one sample",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005},
		},
	)
)

// SessionStarted and SessionStopped keep the active gauge in step.
func SessionStarted() { ActiveSessions.Inc() }

func SessionStopped(distanceKm float64) {
	ActiveSessions.Dec()
	SessionDistance.Observe(distanceKm)
}

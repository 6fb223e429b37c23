package metrics

import (
	"math"

	"backend-skitrack/internal/sample"
	"backend-skitrack/internal/shared/geo"
	"backend-skitrack/internal/shared/ring"

	"github.com/montanaflynn/stats"
)

// Outcome describes what the engine did with a sample.
type Outcome int

const (
	// Rejected samples left the state untouched.
	Rejected Outcome = iota
	// Outlier samples moved the last location but accumulated nothing.
	Outlier
	Accepted
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Outlier:
		return "outlier"
	default:
		return "rejected"
	}
}

// Position is the last accepted fix.
type Position struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// State is a copy of the accumulators.
type State struct {
	DistanceKm         float64   `json:"distance_km"`
	CurrentSpeedKmh    float64   `json:"current_speed_kmh"`
	TopSpeedKmh        float64   `json:"top_speed_kmh"`
	VerticalDropM      float64   `json:"vertical_drop_m"`
	LastLocation       *Position `json:"last_location,omitempty"`
	LastAltitudeM      *float64  `json:"last_altitude_m,omitempty"`
	LastSmoothSpeedKmh float64   `json:"last_smooth_speed_kmh"`
	LiftMode           bool      `json:"lift_mode"`
}

// Result is returned for every consumed sample.
type Result struct {
	Outcome        Outcome
	SmoothSpeedKmh float64
}

// Engine owns the session accumulators. It is not safe for concurrent use.
type Engine struct {
	cfg    Config
	state  State
	speeds *ring.Buffer[float64]
}

func NewEngine(cfg Config) *Engine {
	if cfg.MedianWindow < 1 {
		cfg.MedianWindow = 1
	}
	if cfg.MedianWindow%2 == 0 {
		cfg.MedianWindow++
	}
	return &Engine{cfg: cfg, speeds: ring.New[float64](cfg.MedianWindow)}
}

func (e *Engine) Config() Config { return e.cfg }

// Reset zeroes every accumulator and clears the median window.
func (e *Engine) Reset() {
	e.state = State{}
	e.speeds.Reset()
}

// State returns a deep copy of the accumulators.
func (e *Engine) State() State {
	st := e.state
	if st.LastLocation != nil {
		p := *st.LastLocation
		st.LastLocation = &p
	}
	if st.LastAltitudeM != nil {
		a := *st.LastAltitudeM
		st.LastAltitudeM = &a
	}
	return st
}

// ConsumeSample admits s, then updates speed, top speed, vertical drop and distance.
// liftMode is set while the rider is on a lift or idle; altOverride, when non-nil,
// replaces the sample's altitude.
func (e *Engine) ConsumeSample(s sample.Sample, liftMode bool, altOverride *float64) Result {
	if !s.HasFinitePosition() {
		return Result{Outcome: Rejected, SmoothSpeedKmh: e.state.LastSmoothSpeedKmh}
	}
	acc, hasAcc := accuracy(s)
	if hasAcc && (acc <= 0 || acc > e.cfg.MaxHorizontalAccuracyM) {
		return Result{Outcome: Rejected, SmoothSpeedKmh: e.state.LastSmoothSpeedKmh}
	}

	var dt, dm float64
	last := e.state.LastLocation
	if last != nil {
		dt = float64(s.TimestampMs-last.TimestampMs) / 1000
		if dt < e.cfg.MinDtSec {
			return Result{Outcome: Rejected, SmoothSpeedKmh: e.state.LastSmoothSpeedKmh}
		}
		dm = geo.DistanceM(last.Latitude, last.Longitude, s.Latitude, s.Longitude)
		if dm > e.allowedStepM(dt, acc) {
			e.state.LastLocation = &Position{TimestampMs: s.TimestampMs, Latitude: s.Latitude, Longitude: s.Longitude}
			e.state.LiftMode = liftMode
			return Result{Outcome: Outlier, SmoothSpeedKmh: e.state.LastSmoothSpeedKmh}
		}
	}

	e.state.LiftMode = liftMode
	observed := e.observedSpeedKmh(s, last != nil, dm, dt)
	e.speeds.Push(observed)
	median, _ := stats.Float64Data(e.speeds.Values()).Median()

	smooth := e.cfg.SmoothAlpha*e.state.LastSmoothSpeedKmh + (1-e.cfg.SmoothAlpha)*median
	e.state.LastSmoothSpeedKmh = smooth
	e.state.CurrentSpeedKmh = smooth

	if !liftMode && smooth > e.state.TopSpeedKmh && smooth >= e.cfg.TopSpeedMinCandidateKmh {
		e.state.TopSpeedKmh = smooth
	}

	e.accumulateDrop(s, liftMode, altOverride)

	if !liftMode && last != nil && dt > 0 && smooth >= e.cfg.MinSpeedForDistanceKmh {
		stepKm := dm / 1000
		ceilingKm := (smooth / 3600) * dt * e.cfg.ClampOvershootRatio
		e.state.DistanceKm += math.Min(stepKm, ceilingKm)
	}

	e.state.LastLocation = &Position{TimestampMs: s.TimestampMs, Latitude: s.Latitude, Longitude: s.Longitude}
	return Result{Outcome: Accepted, SmoothSpeedKmh: smooth}
}

func (e *Engine) allowedStepM(dt, acc float64) float64 {
	allowed := math.Min((e.cfg.MaxSpeedKmh/3.6)*dt*e.cfg.JumpOvershootRatio, e.cfg.HardMaxStepDistanceM)
	penalty := 1.0
	if acc > 0 && e.cfg.MaxHorizontalAccuracyM > 0 {
		penalty = math.Max(1, acc/e.cfg.MaxHorizontalAccuracyM)
	}
	return allowed / penalty
}

func (e *Engine) observedSpeedKmh(s sample.Sample, hasPrev bool, dm, dt float64) float64 {
	v, ok := s.ReportedSpeedKmh()
	if !ok {
		v = 0
		if hasPrev && dt > 0 {
			v = dm / dt * 3.6
		}
	}
	return math.Max(0, math.Min(v, e.cfg.MaxSpeedKmh))
}

// accumulateDrop moves the altitude anchor once a change clears the gate and
// counts only the downward moves.
func (e *Engine) accumulateDrop(s sample.Sample, liftMode bool, altOverride *float64) {
	alt := sample.Reading{Sample: s, BaroAltitudeM: altOverride}.Altitude()
	if alt == nil {
		return
	}
	cur := *alt
	if e.state.LastAltitudeM == nil {
		e.state.LastAltitudeM = &cur
		return
	}
	gate := e.cfg.MinVerticalChangeM
	if liftMode {
		gate *= e.cfg.LiftVerticalGateFactor
	}
	dAlt := cur - *e.state.LastAltitudeM
	switch {
	case dAlt <= -gate:
		e.state.VerticalDropM += -dAlt
		e.state.LastAltitudeM = &cur
	case dAlt >= gate:
		e.state.LastAltitudeM = &cur
	}
}

func accuracy(s sample.Sample) (float64, bool) {
	if s.HorizontalAccuracyM == nil {
		return 0, false
	}
	v := *s.HorizontalAccuracyM
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1, true
	}
	return v, true
}

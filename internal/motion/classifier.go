package motion

import (
	"fmt"
	"math"

	"backend-skitrack/internal/sample"
	"backend-skitrack/internal/shared/geo"
	"backend-skitrack/internal/shared/ring"

	"github.com/montanaflynn/stats"
)

type Mode int

const (
	ModeActive Mode = iota
	ModeIdle
	ModeLift
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeLift:
		return "lift"
	default:
		return "active"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*m = ModeIdle
	case "lift":
		*m = ModeLift
	case "active":
		*m = ModeActive
	default:
		return fmt.Errorf("unknown motion mode %q", b)
	}
	return nil
}

// windowCapacity bounds the window by count in addition to age.
const windowCapacity = 512

const minWindowPoints = 4

type entry struct {
	tMs      int64
	speedKmh float64
	alt      *float64
}

// Classifier tracks the sliding window and current mode for one session.
// It is not safe for concurrent use.
type Classifier struct {
	cfg    Config
	mode   Mode
	window *ring.Buffer[entry]
	prev   *sample.Sample
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg:    cfg,
		mode:   ModeActive,
		window: ring.New[entry](windowCapacity),
	}
}

func (c *Classifier) Mode() Mode { return c.mode }

// Reset clears the window and returns to Active.
func (c *Classifier) Reset() {
	c.window.Reset()
	c.prev = nil
	c.mode = ModeActive
}

// WindowStats summarizes the buffered window.
type WindowStats struct {
	Points         int
	WindowSec      float64
	MedianSpeedKmh float64
	AltGainM       float64
	UpRateMps      float64
	DownRateMps    float64
}

// Observe pushes one reading into the window and returns the resulting mode.
func (c *Classifier) Observe(r sample.Reading) Mode {
	if !r.HasFinitePosition() {
		return c.mode
	}

	speed := c.instantSpeedKmh(r.Sample)
	s := r.Sample
	c.prev = &s

	var alt *float64
	if a := r.Altitude(); a != nil {
		v := *a
		alt = &v
	}
	c.window.Push(entry{tMs: r.TimestampMs, speedKmh: speed, alt: alt})
	c.prune(r.TimestampMs)

	if c.window.Len() < minWindowPoints {
		return c.mode
	}
	c.mode = next(c.mode, c.stats(), c.cfg)
	return c.mode
}

func (c *Classifier) instantSpeedKmh(s sample.Sample) float64 {
	if v, ok := s.ReportedSpeedKmh(); ok {
		return v
	}
	if c.prev == nil {
		return 0
	}
	dt := float64(s.TimestampMs-c.prev.TimestampMs) / 1000
	if dt <= 0 {
		return 0
	}
	d := geo.DistanceM(c.prev.Latitude, c.prev.Longitude, s.Latitude, s.Longitude)
	return d / dt * 3.6
}

func (c *Classifier) prune(nowMs int64) {
	maxAgeMs := int64(c.cfg.WindowSec * 1000)
	for c.window.Len() > 0 {
		front, _ := c.window.Front()
		if nowMs-front.tMs <= maxAgeMs {
			break
		}
		c.window.PopFront()
	}
}

// Stats computes the window summary without changing state.
func (c *Classifier) Stats() WindowStats {
	return c.stats()
}

func (c *Classifier) stats() WindowStats {
	n := c.window.Len()
	st := WindowStats{Points: n}
	if n == 0 {
		return st
	}

	first, _ := c.window.Front()
	last, _ := c.window.Back()
	st.WindowSec = math.Max(0.5, float64(last.tMs-first.tMs)/1000)

	speeds := make(stats.Float64Data, n)
	for i := 0; i < n; i++ {
		speeds[i] = c.window.At(i).speedKmh
	}
	st.MedianSpeedKmh, _ = speeds.Median()

	firstAlt, lastAlt := -1, -1
	for i := 0; i < n; i++ {
		if c.window.At(i).alt != nil {
			firstAlt = i
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		if c.window.At(i).alt != nil {
			lastAlt = i
			break
		}
	}
	if firstAlt < 0 || lastAlt <= firstAlt {
		return st
	}
	a, b := c.window.At(firstAlt), c.window.At(lastAlt)
	dAlt := *b.alt - *a.alt
	dt := math.Max(0.5, float64(b.tMs-a.tMs)/1000)
	rate := dAlt / dt
	st.AltGainM = math.Max(0, dAlt)
	st.UpRateMps = math.Max(0, rate)
	st.DownRateMps = math.Min(0, rate)
	return st
}

func next(cur Mode, st WindowStats, cfg Config) Mode {
	idleCandidate := st.WindowSec >= cfg.IdleHoldSec && st.MedianSpeedKmh <= cfg.IdleEnterSpeedKmh
	liftCandidate := st.WindowSec >= cfg.LiftHoldSec &&
		st.MedianSpeedKmh >= cfg.LiftEnterMinSpeedKmh &&
		st.MedianSpeedKmh <= cfg.LiftEnterMaxSpeedKmh &&
		st.AltGainM >= cfg.LiftEnterMinAltGainM &&
		st.UpRateMps >= cfg.LiftEnterMinUpRateMps

	switch cur {
	case ModeActive:
		if liftCandidate {
			return ModeLift
		}
		if idleCandidate {
			return ModeIdle
		}
	case ModeIdle:
		if liftCandidate {
			return ModeLift
		}
		if st.MedianSpeedKmh >= cfg.IdleExitSpeedKmh {
			return ModeActive
		}
	case ModeLift:
		exit := st.DownRateMps <= cfg.LiftExitDownRateMps ||
			st.MedianSpeedKmh >= cfg.LiftExitSpeedHighKmh ||
			st.MedianSpeedKmh <= cfg.LiftExitSpeedLowKmh
		if exit {
			if st.MedianSpeedKmh >= cfg.IdleExitSpeedKmh {
				return ModeActive
			}
			return ModeIdle
		}
	}
	return cur
}

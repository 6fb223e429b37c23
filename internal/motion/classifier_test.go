package motion

import (
	"math"
	"testing"

	"backend-skitrack/internal/sample"
)

func reading(tSec int, speedKmh float64, alt *float64) sample.Reading {
	return sample.Reading{Sample: sample.Sample{
		TimestampMs:      int64(tSec) * 1000,
		Latitude:         46.0,
		Longitude:        7.0,
		ReportedSpeedMps: sample.Float(speedKmh / 3.6),
		AltitudeM:        alt,
	}}
}

func TestClassifierHoldsModeWithFewPoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleHoldSec = 0
	c := NewClassifier(cfg)
	for i := 0; i < 3; i++ {
		if m := c.Observe(reading(i, 0, nil)); m != ModeActive {
			t.Fatalf("sample %d: expected active hold, got %s", i, m)
		}
	}
	if m := c.Observe(reading(3, 0, nil)); m != ModeIdle {
		t.Fatalf("expected idle on fourth point, got %s", m)
	}
}

func TestClassifierIdleAfterHold(t *testing.T) {
	cfg := DefaultConfig()
	mps := cfg.IdleEnterSpeedKmh / 3.6
	cfg.IdleEnterSpeedKmh = mps * 3.6
	c := NewClassifier(cfg)

	for i := 0; i <= 25; i++ {
		r := reading(i, 0, nil)
		r.ReportedSpeedMps = sample.Float(mps)
		m := c.Observe(r)
		switch {
		case i < 12 && m != ModeActive:
			t.Fatalf("t=%ds: idle entered before hold elapsed", i)
		case i >= 12 && m != ModeIdle:
			t.Fatalf("t=%ds: expected idle, got %s", i, m)
		}
	}
}

func TestClassifierIdleExit(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	tSec := 0
	for ; tSec <= 13; tSec++ {
		c.Observe(reading(tSec, 0.5, nil))
	}
	if c.Mode() != ModeIdle {
		t.Fatalf("expected idle, got %s", c.Mode())
	}
	for i := 0; i < 30 && c.Mode() == ModeIdle; i++ {
		tSec++
		c.Observe(reading(tSec, 20, nil))
	}
	if c.Mode() != ModeActive {
		t.Fatalf("expected active after moving again, got %s", c.Mode())
	}
}

func TestClassifierNeverLiftsWithoutAltitude(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	for i := 0; i < 30; i++ {
		speed := 8 + float64(i%8)
		if m := c.Observe(reading(i, speed, nil)); m == ModeLift {
			t.Fatalf("sample %d: lift detected without altitude", i)
		}
	}
	st := c.Stats()
	if st.AltGainM != 0 || st.UpRateMps != 0 || st.DownRateMps != 0 {
		t.Fatalf("expected zero altitude stats, got %+v", st)
	}
}

func liftClimb(c *Classifier, n int) Mode {
	var m Mode
	for i := 0; i < n; i++ {
		speed := 8 + float64(i%8)
		m = c.Observe(reading(i, speed, sample.Float(1000+1.5*float64(i))))
	}
	return m
}

func TestClassifierDetectsLift(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	for i := 0; i < 15; i++ {
		speed := 8 + float64(i%8)
		m := c.Observe(reading(i, speed, sample.Float(1000+1.5*float64(i))))
		if i < 10 && m != ModeActive {
			t.Fatalf("sample %d: expected active, got %s", i, m)
		}
		if i >= 10 && m != ModeLift {
			t.Fatalf("sample %d: expected lift, got %s", i, m)
		}
	}
}

func TestClassifierLiftExitOnDescent(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	if m := liftClimb(c, 15); m != ModeLift {
		t.Fatalf("expected lift, got %s", m)
	}

	alt := 1000 + 1.5*14
	tSec := 14
	alt -= 2
	tSec++
	if m := c.Observe(reading(tSec, 12, sample.Float(alt))); m != ModeLift {
		t.Fatalf("expected lift to hold on first descending point, got %s", m)
	}
	for i := 0; i < 25 && c.Mode() == ModeLift; i++ {
		alt -= 2
		tSec++
		c.Observe(reading(tSec, 12, sample.Float(alt)))
	}
	if c.Mode() != ModeActive {
		t.Fatalf("expected active after descent, got %s", c.Mode())
	}
	if c.Stats().DownRateMps > DefaultConfig().LiftExitDownRateMps {
		t.Fatalf("expected descending window, got %+v", c.Stats())
	}
}

func TestClassifierLiftExitOnHighSpeed(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	liftClimb(c, 15)
	alt := 1000 + 1.5*14
	tSec := 14
	for i := 0; i < 25 && c.Mode() == ModeLift; i++ {
		alt += 1.5
		tSec++
		c.Observe(reading(tSec, 45, sample.Float(alt)))
	}
	if c.Mode() != ModeActive {
		t.Fatalf("expected active after high speed, got %s", c.Mode())
	}
	if c.Stats().MedianSpeedKmh < DefaultConfig().LiftExitSpeedHighKmh {
		t.Fatalf("expected high median at exit, got %+v", c.Stats())
	}
}

func TestClassifierLiftExitToIdle(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	liftClimb(c, 15)
	alt := 1000 + 1.5*14
	tSec := 14
	for i := 0; i < 25 && c.Mode() == ModeLift; i++ {
		tSec++
		c.Observe(reading(tSec, 0, sample.Float(alt)))
	}
	if c.Mode() != ModeIdle {
		t.Fatalf("expected idle after stopping at the top, got %s", c.Mode())
	}
}

func TestClassifierDerivesSpeedFromPositions(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	for i := 0; i < 6; i++ {
		c.Observe(sample.Reading{Sample: sample.Sample{
			TimestampMs: int64(i) * 1000,
			Latitude:    46.0 + 0.0001*float64(i),
			Longitude:   7.0,
		}})
	}
	median := c.Stats().MedianSpeedKmh
	if math.Abs(median-40) > 2 {
		t.Fatalf("expected ~40 km/h derived speed, got %v", median)
	}
}

func TestClassifierIgnoresNonFinitePosition(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	c.Observe(sample.Reading{Sample: sample.Sample{Latitude: math.NaN(), Longitude: 7}})
	if c.Stats().Points != 0 {
		t.Fatalf("expected non-finite sample to be ignored")
	}
}

func TestClassifierPrunesByAgeAndReset(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	for i := 0; i < 60; i++ {
		c.Observe(reading(i, 10, nil))
	}
	st := c.Stats()
	if st.WindowSec > 25 || st.Points != 26 {
		t.Fatalf("expected window limited to 25s, got %+v", st)
	}
	c.Reset()
	if c.Stats().Points != 0 || c.Mode() != ModeActive {
		t.Fatalf("expected cleared classifier")
	}
}

func TestModeText(t *testing.T) {
	for _, m := range []Mode{ModeActive, ModeIdle, ModeLift} {
		b, _ := m.MarshalText()
		var got Mode
		if err := got.UnmarshalText(b); err != nil || got != m {
			t.Fatalf("round trip %s: got %s err %v", m, got, err)
		}
	}
	var m Mode
	if err := m.UnmarshalText([]byte("gondola")); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

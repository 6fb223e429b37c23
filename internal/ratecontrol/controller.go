package ratecontrol

import (
	"backend-skitrack/internal/motion"
	"backend-skitrack/internal/sample"
)

// RateSetter is the part of a sample source the controller drives.
type RateSetter interface {
	SetRate(r sample.Rate)
}

// Desired maps a motion mode to the sampling rate it needs.
func Desired(m motion.Mode) sample.Rate {
	if m == motion.ModeActive {
		return sample.RateDense
	}
	return sample.RateSparse
}

// Controller forwards rate changes to the source only when they differ from
// the last applied rate.
type Controller struct {
	target  RateSetter
	last    sample.Rate
	applied bool
}

func New(target RateSetter) *Controller {
	return &Controller{target: target}
}

// Force applies r unconditionally, e.g. at session start.
func (c *Controller) Force(r sample.Rate) {
	c.last = r
	c.applied = true
	if c.target != nil {
		c.target.SetRate(r)
	}
}

// Apply switches to the rate for m and reports whether the source was reconfigured.
func (c *Controller) Apply(m motion.Mode) bool {
	want := Desired(m)
	if c.applied && want == c.last {
		return false
	}
	c.Force(want)
	return true
}

func (c *Controller) Current() sample.Rate { return c.last }

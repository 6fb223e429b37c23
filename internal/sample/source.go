package sample

import (
	"sync"
	"time"
)

// Rate is the emission rate requested from a sample source.
type Rate int

const (
	RateDense Rate = iota
	RateSparse
)

func (r Rate) String() string {
	if r == RateSparse {
		return "sparse"
	}
	return "dense"
}

// Interval is the minimum time between fixes at this rate.
func (r Rate) Interval() time.Duration {
	if r == RateSparse {
		return 5 * time.Second
	}
	return time.Second
}

// MinDistanceM is the minimum displacement between fixes at this rate.
func (r Rate) MinDistanceM() float64 {
	if r == RateSparse {
		return 25
	}
	return 5
}

// Handler receives readings pushed by a Source and reports whether it took them.
type Handler func(Reading) bool

// Source is a push-style provider of readings whose emission rate can be changed.
type Source interface {
	Start(h Handler)
	Stop()
	SetRate(r Rate)
}

// PushSource is a Source fed by an external producer (an HTTP client or a file replay).
// Readings pushed while stopped are dropped.
type PushSource struct {
	mu      sync.Mutex
	handler Handler
	rate    Rate
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

func (p *PushSource) Start(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

func (p *PushSource) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = nil
}

func (p *PushSource) SetRate(r Rate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = r
}

// Rate is the last rate requested by the pipeline; producers use it to pace themselves.
func (p *PushSource) Rate() Rate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Push delivers r to the handler and reports whether the handler took it.
// Readings pushed while stopped are dropped.
func (p *PushSource) Push(r Reading) bool {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h == nil {
		return false
	}
	return h(r)
}

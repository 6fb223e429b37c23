package session

import (
	"sync"
	"sync/atomic"
	"time"

	"backend-skitrack/internal/metrics"
	"backend-skitrack/internal/motion"
	"backend-skitrack/internal/ratecontrol"
	"backend-skitrack/internal/sample"
	"backend-skitrack/internal/telemetry"
	"backend-skitrack/internal/track"
)

type state int

const (
	stateIdle state = iota
	stateRecording
)

// Recorder runs the sensing pipeline for one session. Ingest, Start and Stop
// serialize on a mutex so there is a single writer; Live and Track return
// immutable snapshots and never block on it.
type Recorder struct {
	id     string
	source sample.Source
	clock  func() int64

	mu         sync.Mutex
	state      state
	startAtMs  int64
	classifier *motion.Classifier
	engine     *metrics.Engine
	rates      *ratecontrol.Controller
	segmenter  *track.Segmenter
	observers  []Observer

	live     atomic.Pointer[LiveState]
	segments atomic.Pointer[[]track.Segment]
}

func NewRecorder(id string, source sample.Source, opts Options) *Recorder {
	clock := opts.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().UnixMilli() }
	}
	r := &Recorder{
		id:         id,
		source:     source,
		clock:      clock,
		classifier: motion.NewClassifier(opts.Motion),
		engine:     metrics.NewEngine(opts.Metrics),
		rates:      ratecontrol.New(source),
		segmenter:  track.NewSegmenter(opts.Track),
		observers:  opts.Observers,
	}
	r.live.Store(&LiveState{MotionMode: motion.ModeActive, Rate: sample.RateDense.String()})
	empty := []track.Segment{}
	r.segments.Store(&empty)
	return r
}

func (r *Recorder) ID() string { return r.id }

// Start resets the pipeline and begins accepting samples. It returns false
// when the recorder is already recording.
func (r *Recorder) Start() bool {
	r.mu.Lock()
	if r.state != stateIdle {
		r.mu.Unlock()
		return false
	}
	r.engine.Reset()
	r.classifier.Reset()
	r.segmenter.Reset()
	r.rates.Force(sample.RateDense)
	telemetry.RateSwitches.WithLabelValues(sample.RateDense.String()).Inc()
	r.startAtMs = r.clock()
	r.state = stateRecording
	r.publishLocked(true)
	r.mu.Unlock()

	telemetry.SessionStarted()
	if r.source != nil {
		r.source.Start(r.Ingest)
	}
	return true
}

// Ingest runs one reading through classifier, rate controller, metrics engine
// and segmenter, then publishes snapshots. Readings outside a recording are
// dropped and reported as false.
func (r *Recorder) Ingest(rd sample.Reading) bool {
	began := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateRecording {
		return false
	}

	prev := r.classifier.Mode()
	mode := r.classifier.Observe(rd)
	if mode != prev {
		telemetry.ModeTransitions.WithLabelValues(prev.String(), mode.String()).Inc()
	}
	if r.rates.Apply(mode) {
		telemetry.RateSwitches.WithLabelValues(r.rates.Current().String()).Inc()
	}

	res := r.engine.ConsumeSample(rd.Sample, mode != motion.ModeActive, rd.BaroAltitudeM)
	telemetry.SamplesTotal.WithLabelValues(res.Outcome.String()).Inc()

	trackChanged := false
	if res.Outcome == metrics.Accepted {
		trackChanged = r.segmenter.Add(rd.Latitude, rd.Longitude, res.SmoothSpeedKmh, rd.TimestampMs)
	}
	r.publishLocked(trackChanged)
	telemetry.SampleLatency.Observe(time.Since(began).Seconds())
	return true
}

// Stop ends ingestion and returns the session summary. It returns false when
// the recorder was not recording.
func (r *Recorder) Stop() (Summary, bool) {
	r.mu.Lock()
	if r.state != stateRecording {
		r.mu.Unlock()
		return Summary{}, false
	}
	r.state = stateIdle
	if r.source != nil {
		r.source.Stop()
	}

	now := r.clock()
	st := r.engine.State()
	durationSec := (now - r.startAtMs) / 1000
	if durationSec < 0 {
		durationSec = 0
	}
	avg := 0.0
	if durationSec > 0 {
		avg = st.DistanceKm / (float64(durationSec) / 3600)
	}
	summary := Summary{
		StartAtMs:     r.startAtMs,
		EndAtMs:       now,
		DurationSec:   durationSec,
		DistanceKm:    st.DistanceKm,
		TopSpeedKmh:   st.TopSpeedKmh,
		AvgSpeedKmh:   avg,
		VerticalDropM: st.VerticalDropM,
	}
	r.publishLocked(false)
	r.mu.Unlock()

	telemetry.SessionStopped(summary.DistanceKm)
	return summary, true
}

// StartAtMs is the clock reading taken when the current or last session started.
func (r *Recorder) StartAtMs() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startAtMs
}

func (r *Recorder) Mode() motion.Mode {
	return r.Live().MotionMode
}

func (r *Recorder) Recording() bool {
	return r.Live().IsRecording
}

// Live returns the latest published snapshot.
func (r *Recorder) Live() LiveState {
	return *r.live.Load()
}

// Track returns the latest published segments. The points are shared and must not be modified.
func (r *Recorder) Track() []track.Segment {
	return *r.segments.Load()
}

func (r *Recorder) Feed() track.Feed {
	return track.SplitFeed(r.Track())
}

func (r *Recorder) publishLocked(trackChanged bool) {
	st := r.engine.State()
	live := &LiveState{
		IsRecording:     r.state == stateRecording,
		DistanceKm:      st.DistanceKm,
		CurrentSpeedKmh: st.CurrentSpeedKmh,
		TopSpeedKmh:     st.TopSpeedKmh,
		VerticalDropM:   st.VerticalDropM,
		MotionMode:      r.classifier.Mode(),
		Rate:            r.rates.Current().String(),
	}
	if d := (r.clock() - r.startAtMs) / 1000; d > 0 {
		live.DurationSec = d
	}
	r.live.Store(live)

	var segs []track.Segment
	if trackChanged {
		segs = r.segmenter.Snapshot()
		r.segments.Store(&segs)
	}
	for _, o := range r.observers {
		o.PublishLive(r.id, *live)
		if trackChanged {
			o.PublishTrack(r.id, segs)
		}
	}
}

package track

import (
	"backend-skitrack/internal/shared/geo"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

type Config struct {
	MinDistanceM float64
	FastOnKmh    float64
	FastOffKmh   float64
	DwellOnMs    int64
	DwellOffMs   int64
}

func DefaultConfig() Config {
	return Config{
		MinDistanceM: 3,
		FastOnKmh:    50,
		FastOffKmh:   48,
		DwellOnMs:    2000,
		DwellOffMs:   1000,
	}
}

// Segment is a contiguous run of points drawn in one style.
type Segment struct {
	Points orb.LineString `json:"points"`
	IsFast bool           `json:"is_fast"`
}

// Feed is the render-ready view: normal and fast polylines in track order.
type Feed struct {
	Normal []orb.LineString `json:"normal"`
	Fast   []orb.LineString `json:"fast"`
}

// Segmenter splits the accepted track into normal and fast segments with
// dwell-time hysteresis. It is not safe for concurrent use.
type Segmenter struct {
	cfg      Config
	segments []Segment
	last     orb.Point
	hasLast  bool

	fast         bool
	pending      bool
	pendingSince int64
}

func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

func (s *Segmenter) Reset() {
	s.segments = nil
	s.hasLast = false
	s.fast = false
	s.pending = false
	s.pendingSince = 0
}

func (s *Segmenter) Fast() bool { return s.fast }

// Add offers one point with its smoothed speed and reports whether it was kept.
// Dwell timers see every offered point, including ones dropped as jitter.
func (s *Segmenter) Add(lat, lng, speedKmh float64, tMs int64) bool {
	s.updateFast(speedKmh, tMs)
	p := geo.Point(lat, lng)
	if s.hasLast && orbgeo.DistanceHaversine(s.last, p) < s.cfg.MinDistanceM {
		return false
	}

	n := len(s.segments)
	switch {
	case n == 0:
		s.segments = append(s.segments, Segment{Points: orb.LineString{p}, IsFast: s.fast})
	case s.segments[n-1].IsFast != s.fast:
		s.segments = append(s.segments, Segment{Points: orb.LineString{s.last, p}, IsFast: s.fast})
	default:
		s.segments[n-1].Points = append(s.segments[n-1].Points, p)
	}
	s.last = p
	s.hasLast = true
	return true
}

func (s *Segmenter) updateFast(speedKmh float64, tMs int64) {
	var sustained bool
	var dwell int64
	if s.fast {
		sustained = speedKmh <= s.cfg.FastOffKmh
		dwell = s.cfg.DwellOffMs
	} else {
		sustained = speedKmh >= s.cfg.FastOnKmh
		dwell = s.cfg.DwellOnMs
	}
	if !sustained {
		s.pending = false
		return
	}
	if !s.pending {
		s.pending = true
		s.pendingSince = tMs
	}
	if tMs-s.pendingSince >= dwell {
		s.fast = !s.fast
		s.pending = false
	}
}

// Segments returns a copy of all segments.
func (s *Segmenter) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		out[i] = Segment{Points: append(orb.LineString(nil), seg.Points...), IsFast: seg.IsFast}
	}
	return out
}

// Snapshot returns the segments without copying points. Each slice is capped at
// its current length, so later appends by the segmenter never show through.
// Callers must treat the points as read-only.
func (s *Segmenter) Snapshot() []Segment {
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		n := len(seg.Points)
		out[i] = Segment{Points: seg.Points[:n:n], IsFast: seg.IsFast}
	}
	return out
}

// Feed splits a copy of the segments into the two render layers.
func (s *Segmenter) Feed() Feed {
	return SplitFeed(s.Segments())
}

// SplitFeed groups segments into the normal and fast layers, keeping track order.
func SplitFeed(segments []Segment) Feed {
	f := Feed{Normal: []orb.LineString{}, Fast: []orb.LineString{}}
	for _, seg := range segments {
		if seg.IsFast {
			f.Fast = append(f.Fast, seg.Points)
		} else {
			f.Normal = append(f.Normal, seg.Points)
		}
	}
	return f
}

// FeatureCollection renders the segments as GeoJSON LineStrings tagged with "fast".
func FeatureCollection(segments []Segment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, seg := range segments {
		f := geojson.NewFeature(seg.Points)
		f.Properties["fast"] = seg.IsFast
		f.Properties["index"] = i
		fc.Append(f)
	}
	return fc
}

package main

import (
	"fmt"
	"io"
	"math"
	"sort"

	"backend-skitrack/internal/sample"

	"github.com/tormoder/fit"
)

// readFit decodes an activity file into readings ordered by timestamp.
// Records without a valid position or timestamp are skipped.
func readFit(r io.Reader) ([]sample.Reading, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	readings := make([]sample.Reading, 0, len(activity.Records))
	for _, rec := range activity.Records {
		if rd, ok := readingFromRecord(rec); ok {
			readings = append(readings, rd)
		}
	}
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].TimestampMs < readings[j].TimestampMs
	})
	return readings, nil
}

func readingFromRecord(rec *fit.RecordMsg) (sample.Reading, bool) {
	if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
		return sample.Reading{}, false
	}
	if rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
		return sample.Reading{}, false
	}

	s := sample.Sample{
		TimestampMs: rec.Timestamp.UnixMilli(),
		Latitude:    rec.PositionLat.Degrees(),
		Longitude:   rec.PositionLong.Degrees(),
	}
	if alt, ok := firstFinite(rec.GetEnhancedAltitudeScaled(), rec.GetAltitudeScaled()); ok {
		s.AltitudeM = sample.Float(alt)
	}
	if speed, ok := firstFinite(rec.GetEnhancedSpeedScaled(), rec.GetSpeedScaled()); ok && speed >= 0 {
		s.ReportedSpeedMps = sample.Float(speed)
	}
	return sample.Reading{Sample: s}, true
}

func firstFinite(vals ...float64) (float64, bool) {
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

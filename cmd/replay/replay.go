package main

import (
	"math"

	"backend-skitrack/internal/sample"
	"backend-skitrack/internal/session"
)

// Row is one replayed reading with the live state it produced.
type Row struct {
	TimestampMs     int64   `parquet:"name=timestamp_ms, type=INT64"`
	Latitude        float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude       float64 `parquet:"name=longitude, type=DOUBLE"`
	AltitudeM       float64 `parquet:"name=altitude_m, type=DOUBLE"`
	ReportedSpeedMs float64 `parquet:"name=reported_speed_mps, type=DOUBLE"`
	SpeedKmh        float64 `parquet:"name=speed_kmh, type=DOUBLE"`
	DistanceKm      float64 `parquet:"name=distance_km, type=DOUBLE"`
	VerticalDropM   float64 `parquet:"name=vertical_drop_m, type=DOUBLE"`
	Mode            string  `parquet:"name=mode, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Rate            string  `parquet:"name=rate, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

type Result struct {
	Summary session.Summary
	Rows    []Row
}

// replay runs readings through a recorder whose clock follows the sample
// timestamps, so durations match the recording rather than wall time.
func replay(readings []sample.Reading, opts session.Options) Result {
	var now int64
	if len(readings) > 0 {
		now = readings[0].TimestampMs
	}
	opts.Clock = func() int64 { return now }

	src := sample.NewPushSource()
	rec := session.NewRecorder("replay", src, opts)
	rec.Start()

	rows := make([]Row, 0, len(readings))
	for _, rd := range readings {
		if rd.TimestampMs > now {
			now = rd.TimestampMs
		}
		src.Push(rd)
		live := rec.Live()
		rows = append(rows, Row{
			TimestampMs:     rd.TimestampMs,
			Latitude:        rd.Latitude,
			Longitude:       rd.Longitude,
			AltitudeM:       valueOrNaN(rd.Altitude()),
			ReportedSpeedMs: valueOrNaN(rd.ReportedSpeedMps),
			SpeedKmh:        live.CurrentSpeedKmh,
			DistanceKm:      live.DistanceKm,
			VerticalDropM:   live.VerticalDropM,
			Mode:            live.MotionMode.String(),
			Rate:            live.Rate,
		})
	}

	summary, _ := rec.Stop()
	return Result{Summary: summary, Rows: rows}
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

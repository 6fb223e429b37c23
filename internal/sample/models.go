package sample

import "math"

// Sample is one positional fix as delivered by the device. Optional fields are nil
// when the provider did not report them.
type Sample struct {
	TimestampMs         int64    `json:"timestamp_ms"`
	Latitude            float64  `json:"latitude"`
	Longitude           float64  `json:"longitude"`
	HorizontalAccuracyM *float64 `json:"horizontal_accuracy_m,omitempty"`
	ReportedSpeedMps    *float64 `json:"reported_speed_mps,omitempty"`
	AltitudeM           *float64 `json:"altitude_m,omitempty"`
}

// Reading pairs a sample with an optional barometric altitude taken at the same time.
type Reading struct {
	Sample
	BaroAltitudeM *float64 `json:"baro_altitude_m,omitempty"`
}

// Altitude returns the barometric altitude when present, otherwise the sample's own.
func (r Reading) Altitude() *float64 {
	if r.BaroAltitudeM != nil && isFinite(*r.BaroAltitudeM) {
		return r.BaroAltitudeM
	}
	if r.AltitudeM != nil && isFinite(*r.AltitudeM) {
		return r.AltitudeM
	}
	return nil
}

// HasFinitePosition reports whether latitude and longitude are usable numbers.
func (s Sample) HasFinitePosition() bool {
	return isFinite(s.Latitude) && isFinite(s.Longitude)
}

// ReportedSpeedKmh returns the provider speed in km/h when it is present, finite and non-negative.
func (s Sample) ReportedSpeedKmh() (float64, bool) {
	if s.ReportedSpeedMps == nil {
		return 0, false
	}
	v := *s.ReportedSpeedMps
	if !isFinite(v) || v < 0 {
		return 0, false
	}
	return v * 3.6, true
}

// Float returns a pointer to v, for building samples with optional fields.
func Float(v float64) *float64 {
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

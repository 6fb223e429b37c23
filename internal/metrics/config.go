package metrics

// Config bundles admission, smoothing and accumulation parameters.
type Config struct {
	MaxHorizontalAccuracyM float64
	MinDtSec               float64
	MaxSpeedKmh            float64
	JumpOvershootRatio     float64
	HardMaxStepDistanceM   float64

	// MedianWindow is forced odd by NewEngine.
	MedianWindow int
	SmoothAlpha  float64

	TopSpeedMinCandidateKmh float64
	MinVerticalChangeM      float64
	LiftVerticalGateFactor  float64
	MinSpeedForDistanceKmh  float64
	ClampOvershootRatio     float64
}

func DefaultConfig() Config {
	return Config{
		MaxHorizontalAccuracyM: 30,
		MinDtSec:               0.2,
		MaxSpeedKmh:            120,
		JumpOvershootRatio:     1.25,
		HardMaxStepDistanceM:   500,

		MedianWindow: 5,
		SmoothAlpha:  0.80,

		TopSpeedMinCandidateKmh: 10,
		MinVerticalChangeM:      2,
		LiftVerticalGateFactor:  1.5,
		MinSpeedForDistanceKmh:  2.5,
		ClampOvershootRatio:     1.5,
	}
}

package motion

// Config holds the auto-detect thresholds. Speeds are km/h, rates m/s, durations seconds.
type Config struct {
	WindowSec float64

	IdleHoldSec       float64
	IdleEnterSpeedKmh float64
	IdleExitSpeedKmh  float64

	LiftHoldSec           float64
	LiftEnterMinSpeedKmh  float64
	LiftEnterMaxSpeedKmh  float64
	LiftEnterMinAltGainM  float64
	LiftEnterMinUpRateMps float64

	LiftExitDownRateMps  float64
	LiftExitSpeedHighKmh float64
	LiftExitSpeedLowKmh  float64
}

func DefaultConfig() Config {
	return Config{
		WindowSec: 25,

		IdleHoldSec:       12,
		IdleEnterSpeedKmh: 1.2,
		IdleExitSpeedKmh:  2.5,

		LiftHoldSec:           10,
		LiftEnterMinSpeedKmh:  4.0,
		LiftEnterMaxSpeedKmh:  28.0,
		LiftEnterMinAltGainM:  12,
		LiftEnterMinUpRateMps: 0.30,

		LiftExitDownRateMps:  -0.20,
		LiftExitSpeedHighKmh: 35,
		LiftExitSpeedLowKmh:  3,
	}
}

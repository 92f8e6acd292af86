package location

import "time"

// PositionSample is a single fix reported by a location watcher.
type PositionSample struct {
	Latitude       float64   // degrees
	Longitude      float64   // degrees
	AccuracyMeters float64   // radius of confidence, smaller is better
	CapturedAt     time.Time // when the watcher produced the fix
	Source         string    // watcher that produced the fix
}

// WatchOptions configures a location watch.
type WatchOptions struct {
	HighAccuracy  bool
	MaxCacheAge   time.Duration // 0 means never reuse a cached fix
	PerFixTimeout time.Duration // ceiling on the wait for each individual fix
}

// SamplerConfig holds the sampling budget.
type SamplerConfig struct {
	Deadline         time.Duration // wall-clock budget for one session
	GoodEnoughMeters float64       // early-exit accuracy threshold
	PerFixTimeout    time.Duration // forwarded to the watcher
}

// DefaultSamplerConfig returns the standard budget: 10s deadline, 20m threshold, 15s per fix.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Deadline:         10 * time.Second,
		GoodEnoughMeters: 20,
		PerFixTimeout:    15 * time.Second,
	}
}

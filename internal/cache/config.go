package cache

import "time"

// Config holds cache TTL configuration
type Config struct {
	// UnwrapTTL bounds how long unwrap results (including cached negatives)
	// are retained. Wraps stop being interesting well within a day.
	UnwrapTTL time.Duration
	// DispatchSeenTTL bounds the exactly-once dispatch dedupe window.
	DispatchSeenTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		UnwrapTTL:       24 * time.Hour,
		DispatchSeenTTL: 7 * 24 * time.Hour,
	}
}

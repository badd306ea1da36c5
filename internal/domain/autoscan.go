package domain

import "time"

const (
	DefaultAutoPeriod = 1000 * time.Millisecond
	MinAutoPeriod     = 200 * time.Millisecond

	DefaultFrames = 3
	MinFrames     = 1
	MaxFrames     = 5
)

type AutoScanConfig struct {
	Enabled bool
	Period  time.Duration
	Frames  int
	Fast    bool
	// LastSentAt is zero until the first poll after enabling.
	LastSentAt time.Time
}

func DefaultAutoScanConfig() AutoScanConfig {
	return AutoScanConfig{Period: DefaultAutoPeriod, Frames: DefaultFrames}
}

// Due reports whether a scan should be issued at now.
func (c AutoScanConfig) Due(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	return c.LastSentAt.IsZero() || now.Sub(c.LastSentAt) >= c.Period
}

// ClampFrames maps non-positive counts to the default and caps at MaxFrames.
func ClampFrames(n int) int {
	if n < MinFrames {
		return DefaultFrames
	}
	if n > MaxFrames {
		return MaxFrames
	}
	return n
}

// ClampAutoPeriod maps non-positive periods to the default and raises short ones to the minimum.
func ClampAutoPeriod(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultAutoPeriod
	}
	if d < MinAutoPeriod {
		return MinAutoPeriod
	}
	return d
}

func ModeLabel(fast bool) string {
	if fast {
		return "FAST"
	}
	return "RELIABLE"
}

package ranging

import "time"

// Algorithm selects which lateration solver a newly created session runs.
// "wls" is an accepted alias for "wls2d".
type Algorithm string

const (
	AlgoWLS2D Algorithm = "wls2d"
	AlgoWLS   Algorithm = "wls"
	AlgoWLS3D Algorithm = "wls3d"
	AlgoSWLS  Algorithm = "swls"
)

// normalize resolves the "wls" alias to "wls2d".
func (a Algorithm) normalize() Algorithm {
	if a == AlgoWLS {
		return AlgoWLS2D
	}
	return a
}

// Normalize is the exported form of normalize, for callers (such as
// internal/config) that validate or resolve an Algorithm value parsed
// from outside the package.
func (a Algorithm) Normalize() Algorithm {
	return a.normalize()
}

// Config carries the ranging.*, dw1000.* and coord.* settings a Server
// needs to run sessions: the correlation timers, the algorithm and its
// beacon/common-anchor overrides, the DW1000 radio parameters used for
// RX-level estimation, and the coordinate-filter shape.
type Config struct {
	Algorithm    Algorithm
	RangingTimer time.Duration
	TimeoutTimer time.Duration
	MaxDist      float64

	// ForceBeacon/ForceCommon override automatic election: a named
	// anchor, "RANDOM", or "" for automatic.
	ForceBeacon string
	ForceCommon string

	Channel int
	PRF     int

	FilterLen   int
	QCFilterLen int
	QCFilterDev float64
}

// DefaultConfig returns the documented defaults for every Config field
// (§6): a 100ms ranging timer, a generous timeout, wls2d, channel 5/PRF 64.
func DefaultConfig() Config {
	return Config{
		Algorithm:    AlgoWLS2D,
		RangingTimer: 100 * time.Millisecond,
		TimeoutTimer: 2 * time.Second,
		MaxDist:      50,
		Channel:      5,
		PRF:          64,
		FilterLen:    8,
		QCFilterLen:  8,
		QCFilterDev:  1.0,
	}
}

// Package tdoa implements the time-difference-of-arrival solver: the
// woodoo path-difference formula and the hyperlateration family
// (hypercone seed, hyperjump refinement) in 2D, 3D and pseudo-3D.
package tdoa

import (
	"fmt"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

// ClockHz is the anchor's hardware clock frequency used to convert the
// woodoo ToF result from clock ticks to seconds.
const ClockHz = 63.8976e9

// LightSpeedMPS is the speed of light in metres per second.
const LightSpeedMPS = 299792458.0

// Woodoo computes the geometric path-difference (in metres) between the
// beacon-to-anchor and tag-to-anchor propagation paths from six raw
// timestamps T0..T5 drawn from the ranging session's phase buckets.
func Woodoo(t [6]float64) (float64, error) {
	t41 := t[3] - t[0]
	t32 := t[2] - t[1]
	t54 := t[4] - t[3]
	t63 := t[5] - t[2]
	t51 := t[4] - t[0]
	t62 := t[5] - t[1]

	denom := t51 + t62
	if denom == 0 {
		return 0, fmt.Errorf("woodoo: %w", rtlserr.ErrBadTimes)
	}

	tof := (t41*t63 - t32*t54) / denom
	dof := (tof / ClockHz) * LightSpeedMPS
	return dof, nil
}

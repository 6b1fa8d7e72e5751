package tdoa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

func TestWoodooZeroPathDifference(t *testing.T) {
	dof, err := Woodoo([6]float64{0, 0, 1000, 1000, 2000, 2000})
	require.NoError(t, err)
	assert.InDelta(t, 0, dof, 1e-9)
}

func TestWoodooSanity(t *testing.T) {
	tof := (200.0*300.0 - 100.0*300.0) / 900.0
	assert.InDelta(t, 33.33, tof, 0.01)

	dof, err := Woodoo([6]float64{0, 0, 100, 200, 500, 400})
	require.NoError(t, err)
	want := (tof / ClockHz) * LightSpeedMPS
	assert.InDelta(t, want, dof, 1e-9)
	assert.InDelta(t, 0.1564, dof, 0.001)
}

func TestWoodooZeroDenominatorIsBadTimes(t *testing.T) {
	_, err := Woodoo([6]float64{0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, rtlserr.ErrBadTimes)
}

func TestHyperlater2DFourAnchorSymmetric(t *testing.T) {
	beacon := Point{0, 0, 0}
	anchors := []Point{
		{10, 0, 0},
		{0, 10, 0},
		{-10, 0, 0},
		{0, -10, 0},
	}
	truth := Point{3, 4, 0}
	ranges := make([]float64, len(anchors))
	sigmas := make([]float64, len(anchors))
	for i, a := range anchors {
		ranges[i] = dist(truth, a) - dist(truth, beacon)
		sigmas[i] = 0.1
	}

	res, err := Hyperlater2D(beacon, anchors, ranges, sigmas, Theta)
	require.NoError(t, err)
	assert.InDelta(t, truth.X, res.Position.X, 0.001)
	assert.InDelta(t, truth.Y, res.Position.Y, 0.001)
	assert.Equal(t, 0.0, res.Position.Z)
}

func TestHyperlater2DTooFewAnchors(t *testing.T) {
	_, err := Hyperlater2D(Point{}, []Point{{1, 0, 0}, {0, 1, 0}}, []float64{1, 1}, []float64{0.1, 0.1}, Theta)
	assert.ErrorIs(t, err, rtlserr.ErrSolveUnderdetermined)
}

func TestHyperlater3DFiveAnchorSymmetric(t *testing.T) {
	beacon := Point{0, 0, 0}
	anchors := []Point{
		{10, 0, 0},
		{0, 10, 0},
		{-10, 0, 0},
		{0, -10, 0},
		{0, 0, 10},
	}
	truth := Point{2, 1, 3}
	ranges := make([]float64, len(anchors))
	sigmas := make([]float64, len(anchors))
	for i, a := range anchors {
		ranges[i] = dist(truth, a) - dist(truth, beacon)
		sigmas[i] = 0.1
	}

	res, err := Hyperlater3D(beacon, anchors, ranges, sigmas, Theta)
	require.NoError(t, err)
	assert.InDelta(t, truth.X, res.Position.X, 0.01)
	assert.InDelta(t, truth.Y, res.Position.Y, 0.01)
	assert.InDelta(t, truth.Z, res.Position.Z, 0.01)
}

func TestHyperlater3DPseudoHoldsZFixed(t *testing.T) {
	beacon := Point{0, 0, 2}
	anchors := []Point{
		{10, 0, 0},
		{0, 10, 0},
		{-10, 0, 0},
		{0, -10, 0},
	}
	truth := Point{3, 4, 2}
	ranges := make([]float64, len(anchors))
	sigmas := make([]float64, len(anchors))
	for i, a := range anchors {
		ranges[i] = dist(truth, a) - dist(truth, beacon)
		sigmas[i] = 0.1
	}

	res, err := Hyperlater3DPseudo(beacon, anchors, ranges, sigmas, Theta, beacon.Z)
	require.NoError(t, err)
	assert.InDelta(t, truth.X, res.Position.X, 0.01)
	assert.InDelta(t, truth.Y, res.Position.Y, 0.01)
	assert.Equal(t, beacon.Z, res.Position.Z)
}

func TestHyperlater3DTooFewAnchors(t *testing.T) {
	_, err := Hyperlater3D(Point{}, []Point{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, []float64{1, 1, 1}, []float64{0.1, 0.1, 0.1}, Theta)
	assert.ErrorIs(t, err, rtlserr.ErrSolveUnderdetermined)
}

func TestDistHelper(t *testing.T) {
	assert.Equal(t, 5.0, dist(Point{0, 0, 0}, Point{3, 4, 0}))
	assert.Equal(t, math.Sqrt(50), dist(Point{0, 0, 0}, Point{5, 5, 0}))
}

package tdoa

import (
	"fmt"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// Hyperlater2D solves for a 2D position given a beacon reference
// coordinate, at least three anchor coordinates, their pseudo-ranges
// relative to the beacon, and per-anchor sigmas. Z in the result is
// always zero.
func Hyperlater2D(beacon Point, anchors []Point, ranges, sigmas []float64, theta float64) (Result, error) {
	if len(anchors) < 3 {
		return Result{}, fmt.Errorf("tdoa: hyperlater2D needs >= 3 anchors, got %d: %w", len(anchors), rtlserr.ErrSolveUnderdetermined)
	}

	b0 := []float64{beacon.X, beacon.Y}
	bi := make([][]float64, len(anchors))
	for i, a := range anchors {
		bi[i] = []float64{a.X, a.Y}
	}

	seed, err := hypercone(b0, bi, ranges)
	if err != nil {
		return Result{}, err
	}
	x := Point{seed[0], seed[1], 0}

	y, cond, err := hyperjump2D(beacon, x, anchors, ranges, sigmas, theta)
	if err != nil {
		return Result{}, err
	}

	delta := minOf(sigmas) / 2
	n := 1
	for n < MaxIterations && dist(x, y) > delta {
		x = y
		n++
		y, cond, err = hyperjump2D(beacon, x, anchors, ranges, sigmas, theta)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Position: Point{y.X, y.Y, 0}, Condition: cond}, nil
}

// Hyperlater3D solves for a 3D position given a beacon reference
// coordinate, at least four anchor coordinates, their pseudo-ranges, and
// per-anchor sigmas.
func Hyperlater3D(beacon Point, anchors []Point, ranges, sigmas []float64, theta float64) (Result, error) {
	if len(anchors) < 4 {
		return Result{}, fmt.Errorf("tdoa: hyperlater3D needs >= 4 anchors, got %d: %w", len(anchors), rtlserr.ErrSolveUnderdetermined)
	}

	b0 := []float64{beacon.X, beacon.Y, beacon.Z}
	bi := make([][]float64, len(anchors))
	for i, a := range anchors {
		bi[i] = []float64{a.X, a.Y, a.Z}
	}

	seed, err := hypercone(b0, bi, ranges)
	if err != nil {
		return Result{}, err
	}
	x := Point{seed[0], seed[1], seed[2]}

	y, cond, err := hyperjump3D(beacon, x, anchors, ranges, sigmas, theta)
	if err != nil {
		return Result{}, err
	}

	delta := minOf(sigmas) / 2
	n := 1
	for n < MaxIterations && dist(x, y) > delta {
		x = y
		n++
		y, cond, err = hyperjump3D(beacon, x, anchors, ranges, sigmas, theta)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Position: y, Condition: cond}, nil
}

// Hyperlater3DPseudo solves for an XY position holding Z fixed at zEst
// (or the beacon's own Z, by convention, when the caller passes the
// beacon's Z as zEst). Requires at least four anchors.
func Hyperlater3DPseudo(beacon Point, anchors []Point, ranges, sigmas []float64, theta, zEst float64) (Result, error) {
	if len(anchors) < 4 {
		return Result{}, fmt.Errorf("tdoa: hyperlater3Dp needs >= 4 anchors, got %d: %w", len(anchors), rtlserr.ErrSolveUnderdetermined)
	}

	b0xy := []float64{beacon.X, beacon.Y}
	bixy := make([][]float64, len(anchors))
	for i, a := range anchors {
		bixy[i] = []float64{a.X, a.Y}
	}

	seed, err := hypercone(b0xy, bixy, ranges)
	if err != nil {
		return Result{}, err
	}
	x := Point{seed[0], seed[1], zEst}

	y, cond, err := hyperjump3Dp(beacon, x, anchors, ranges, sigmas, theta)
	if err != nil {
		return Result{}, err
	}

	delta := minOf(sigmas) / 2
	n := 1
	for n < MaxIterations && dist(x, y) > delta {
		x = y
		n++
		y, cond, err = hyperjump3Dp(beacon, x, anchors, ranges, sigmas, theta)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Position: y, Condition: cond}, nil
}

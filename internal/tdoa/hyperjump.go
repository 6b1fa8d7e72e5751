package tdoa

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hyperjump2D refines a 2D position estimate bs given the beacon b0,
// anchor coordinates bi, pseudo-ranges di and per-anchor sigmas.
func hyperjump2D(b0, bs Point, bi []Point, di, sigma []float64, theta float64) (Point, float64, error) {
	n := len(bi)
	g := mat.NewDense(n+2, 3, nil)
	h := make([]float64, n+2)
	w := make([]float64, n+2)

	bs0x, bs0y := bs.X-b0.X, bs.Y-b0.Y
	ds0 := math.Hypot(bs0x, bs0y)

	for i, a := range bi {
		bi0x, bi0y := a.X-b0.X, a.Y-b0.Y
		g.Set(i, 0, bi0x)
		g.Set(i, 1, bi0y)
		g.Set(i, 2, di[i])
		h[i] = (a.X*a.X + a.Y*a.Y - b0.X*b0.X - b0.Y*b0.Y - di[i]*di[i]) / 2
		dis := math.Hypot(a.X-bs.X, a.Y-bs.Y)
		w[i] = 1 / (dis * sigma[i])
	}

	g.Set(n, 0, bs0x)
	g.Set(n, 1, bs0y)
	g.Set(n, 2, -ds0)
	h[n] = bs0x*b0.X + bs0y*b0.Y
	cc := ds0 * theta * theta / 2
	w[n] = 1 / cc

	g.Set(n+1, 0, bs.Y)
	g.Set(n+1, 1, -bs.X)
	g.Set(n+1, 2, 0)
	h[n+1] = 0
	cv := ds0 * theta
	w[n+1] = 1 / cv

	x, cond, err := solveWeightedNormal(g, h, w)
	if err != nil {
		return Point{}, 0, err
	}
	return Point{x[0], x[1], 0}, cond, nil
}

// hyperjump3D refines a 3D position estimate. The two trailing
// orthogonality-regularizer rows are transcribed from the original
// formulation verbatim; the second row's use of bs.X rather than bs.Z
// mirrors the source exactly.
func hyperjump3D(b0, bs Point, bi []Point, di, sigma []float64, theta float64) (Point, float64, error) {
	n := len(bi)
	g := mat.NewDense(n+3, 4, nil)
	h := make([]float64, n+3)
	w := make([]float64, n+3)

	bs0x, bs0y, bs0z := bs.X-b0.X, bs.Y-b0.Y, bs.Z-b0.Z
	ds0 := math.Sqrt(bs0x*bs0x + bs0y*bs0y + bs0z*bs0z)

	for i, a := range bi {
		bi0x, bi0y, bi0z := a.X-b0.X, a.Y-b0.Y, a.Z-b0.Z
		g.Set(i, 0, bi0x)
		g.Set(i, 1, bi0y)
		g.Set(i, 2, bi0z)
		g.Set(i, 3, di[i])
		h[i] = (a.sqrsum() - b0.sqrsum() - di[i]*di[i]) / 2
		dis := dist(a, bs)
		w[i] = 1 / (dis * sigma[i])
	}

	g.Set(n, 0, bs0x)
	g.Set(n, 1, bs0y)
	g.Set(n, 2, bs0z)
	g.Set(n, 3, -ds0)
	h[n] = bs0x*b0.X + bs0y*b0.Y + bs0z*b0.Z
	cc := ds0 * theta * theta / 2
	w[n] = 1 / cc
	cv := ds0 * theta

	g.Set(n+1, 0, bs.Y)
	g.Set(n+1, 1, -bs.X)
	g.Set(n+1, 2, 0)
	g.Set(n+1, 3, 0)
	h[n+1] = 0
	w[n+1] = 1 / cv

	g.Set(n+2, 0, bs.Z)
	g.Set(n+2, 1, 0)
	g.Set(n+2, 2, -bs.X)
	g.Set(n+2, 3, 0)
	h[n+2] = 0
	w[n+2] = 1 / cv

	x, cond, err := solveWeightedNormal(g, h, w)
	if err != nil {
		return Point{}, 0, err
	}
	return Point{x[0], x[1], x[2]}, cond, nil
}

// hyperjump3Dp refines the XY position while holding Z at bs.Z, the
// pseudo-3D variant. ci0z folds the anchor/beacon Z-offsets into the
// measurement vector so a single XY solve stays consistent with the 3D
// ranges.
func hyperjump3Dp(b0, bs Point, bi []Point, di, sigma []float64, theta float64) (Point, float64, error) {
	n := len(bi)
	g := mat.NewDense(n+2, 3, nil)
	h := make([]float64, n+2)
	w := make([]float64, n+2)

	bs0x, bs0y, bs0z := bs.X-b0.X, bs.Y-b0.Y, bs.Z-b0.Z
	ds0 := math.Sqrt(bs0x*bs0x + bs0y*bs0y + bs0z*bs0z)

	for i, a := range bi {
		bi0x, bi0y, bi0z := a.X-b0.X, a.Y-b0.Y, a.Z-b0.Z
		ci0z := bi0z * ((a.Z - bs.Z) + (b0.Z - bs.Z))
		g.Set(i, 0, bi0x)
		g.Set(i, 1, bi0y)
		g.Set(i, 2, di[i])
		h[i] = (a.X*a.X + a.Y*a.Y - b0.X*b0.X - b0.Y*b0.Y - di[i]*di[i] + ci0z) / 2
		dis := dist(a, bs)
		w[i] = 1 / (dis * sigma[i])
	}

	g.Set(n, 0, bs0x)
	g.Set(n, 1, bs0y)
	g.Set(n, 2, -ds0)
	h[n] = bs0x*b0.X + bs0y*b0.Y
	cc := ds0 * theta * theta / 2
	w[n] = 1 / cc

	g.Set(n+1, 0, bs.Y)
	g.Set(n+1, 1, -bs.X)
	g.Set(n+1, 2, 0)
	h[n+1] = 0
	cv := ds0 * theta
	w[n+1] = 1 / cv

	x, cond, err := solveWeightedNormal(g, h, w)
	if err != nil {
		return Point{}, 0, err
	}
	return Point{x[0], x[1], bs.Z}, cond, nil
}

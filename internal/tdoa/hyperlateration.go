package tdoa

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

// Theta is the default hyperjump regularizer weighting used when the
// caller does not override it.
const Theta = 0.045

// MaxIterations bounds the hyperjump refinement loop.
const MaxIterations = 8

// Point is a 3D coordinate. 2D callers leave Z at zero.
type Point struct {
	X, Y, Z float64
}

func (p Point) sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

func (p Point) sqrsum() float64 {
	return p.X*p.X + p.Y*p.Y + p.Z*p.Z
}

func (p Point) norm() float64 {
	return math.Sqrt(p.sqrsum())
}

func dist(a, b Point) float64 {
	return a.sub(b).norm()
}

// Result is the outcome of a hyperlateration solve: the estimated
// position and the condition number of the final weighted normal matrix
// (a large condition number indicates a poorly constrained geometry).
type Result struct {
	Position  Point
	Condition float64
}

// hypercone solves the linear least-squares seed position from the
// beacon coordinate b0, anchor coordinates bi, and pseudo-ranges di:
// G = [bi-b0 | di], h = (|bi|^2 - |b0|^2 - di^2)/2, solve G^T G x = G^T h.
// dim selects how many leading columns of G (and of the returned vector)
// carry position components, as opposed to the trailing di column.
func hypercone(b0 []float64, bi [][]float64, di []float64) ([]float64, error) {
	dim := len(b0)
	n := len(bi)

	g := mat.NewDense(n, dim+1, nil)
	h := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sq := 0.0
		for d := 0; d < dim; d++ {
			g.Set(i, d, bi[i][d]-b0[d])
			sq += bi[i][d]*bi[i][d] - b0[d]*b0[d]
		}
		g.Set(i, dim, di[i])
		h.SetVec(i, (sq-di[i]*di[i])/2)
	}

	var gtg mat.Dense
	gtg.Mul(g.T(), g)
	var gth mat.VecDense
	gth.MulVec(g.T(), h)

	var x mat.VecDense
	if err := x.SolveVec(&gtg, &gth); err != nil {
		return nil, fmt.Errorf("tdoa: hypercone normal equations: %w", err)
	}

	out := make([]float64, dim)
	for d := 0; d < dim; d++ {
		out[d] = x.AtVec(d)
	}
	return out, nil
}

func conditionNumber(m mat.Matrix) float64 {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return math.Inf(1)
	}
	vals := svd.Values(nil)
	if len(vals) == 0 || vals[len(vals)-1] == 0 {
		return math.Inf(1)
	}
	return vals[0] / vals[len(vals)-1]
}

// solveWeightedNormal solves the weighted normal equations
// G^T diag(w^2) G x = G^T diag(w^2) h and returns x plus the condition
// number of the weighted normal matrix.
func solveWeightedNormal(g *mat.Dense, h, w []float64) ([]float64, float64, error) {
	rows, cols := g.Dims()
	gw := mat.NewDense(rows, cols, nil)
	hw := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			gw.Set(i, j, g.At(i, j)*w[i])
		}
		hw.SetVec(i, h[i]*w[i])
	}

	var gtg mat.Dense
	gtg.Mul(gw.T(), gw)
	var gth mat.VecDense
	gth.MulVec(gw.T(), hw)

	var x mat.VecDense
	if err := x.SolveVec(&gtg, &gth); err != nil {
		return nil, 0, fmt.Errorf("tdoa: hyperjump normal equations: %w", err)
	}

	out := make([]float64, cols)
	for i := 0; i < cols; i++ {
		out[i] = x.AtVec(i)
	}
	return out, conditionNumber(&gtg), nil
}

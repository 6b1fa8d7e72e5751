// Package coordfilter implements the three solved-coordinate smoothing
// variants shared by the server's live coordinate stream: a running
// window mean, a geometric IIR mean/variance, and a quality-gated
// composite of the two.
package coordfilter

import "math"

// Vec3 is a 3D coordinate. The filters treat it as an opaque value to
// average and never interpret X/Y/Z individually.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) sqrsum() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func dist(a, b Vec3) float64 {
	d := a.sub(b)
	return math.Sqrt(d.sqrsum())
}

// Filter is the common contract shared by all three variants.
type Filter interface {
	Reset()
	Update(v Vec3)
	Value() Vec3
	Avg() Vec3
	Var() float64
	Std() float64
}

package coordfilter

import "math"

// GeometricMean is the geometric IIR mean/variance filter, the Go
// counterpart of CoordGeoFilter: both the running mean and the running
// variance decay with a 1/min(count,N) gain, so the filter behaves like
// a plain cumulative average for the first N samples and like an
// exponential moving average thereafter.
type GeometricMean struct {
	length  int
	count   int
	valFilt Vec3
	varFilt float64
}

// NewGeometricMean creates a geometric IIR filter with window length N.
func NewGeometricMean(length int) *GeometricMean {
	g := &GeometricMean{length: length}
	g.Reset()
	return g
}

func (g *GeometricMean) Reset() {
	g.count = 0
	g.valFilt = Vec3{}
	g.varFilt = 0
}

func (g *GeometricMean) Update(v Vec3) {
	g.count++
	flen := g.count
	if flen > g.length {
		flen = g.length
	}
	diff := v.sub(g.valFilt)
	g.valFilt = g.valFilt.add(diff.scale(1 / float64(flen)))
	g.varFilt += (v.sub(g.valFilt).sqrsum() - g.varFilt) / float64(flen)
}

func (g *GeometricMean) Value() Vec3 {
	return g.valFilt
}

func (g *GeometricMean) Avg() Vec3 {
	return g.valFilt
}

func (g *GeometricMean) Var() float64 {
	return g.varFilt
}

func (g *GeometricMean) Std() float64 {
	return math.Sqrt(g.varFilt)
}

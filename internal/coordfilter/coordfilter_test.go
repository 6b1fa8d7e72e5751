package coordfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowMeanConstantInputConverges(t *testing.T) {
	w := NewWindowMean(5)
	v := Vec3{1, 2, 3}
	for i := 0; i < 10; i++ {
		w.Update(v)
	}
	assert.Equal(t, v, w.Avg())
	assert.InDelta(t, 0, w.Var(), 1e-12)
}

func TestWindowMeanEvictsOldest(t *testing.T) {
	w := NewWindowMean(2)
	w.Update(Vec3{0, 0, 0})
	w.Update(Vec3{10, 0, 0})
	w.Update(Vec3{20, 0, 0})

	// Oldest sample (0,0,0) must have been evicted; average of the last
	// two samples is (15,0,0).
	assert.Equal(t, Vec3{15, 0, 0}, w.Avg())
}

func TestWindowMeanReset(t *testing.T) {
	w := NewWindowMean(3)
	w.Update(Vec3{1, 1, 1})
	w.Reset()
	assert.Equal(t, Vec3{}, w.Avg())
}

func TestGeometricMeanConstantInputConvergesToZeroVariance(t *testing.T) {
	g := NewGeometricMean(8)
	v := Vec3{5, -2, 1.5}
	for i := 0; i < 50; i++ {
		g.Update(v)
	}
	assert.InDelta(t, v.X, g.Avg().X, 1e-9)
	assert.InDelta(t, v.Y, g.Avg().Y, 1e-9)
	assert.InDelta(t, v.Z, g.Avg().Z, 1e-9)
	assert.InDelta(t, 0, g.Var(), 1e-9)
}

func TestGeometricMeanTracksBeforeWindowFills(t *testing.T) {
	g := NewGeometricMean(100)
	g.Update(Vec3{0, 0, 0})
	g.Update(Vec3{10, 0, 0})
	// With count=2 < length, this behaves as a plain cumulative mean.
	assert.Equal(t, Vec3{5, 0, 0}, g.Avg())
}

func TestQualityGatedRejectsOutlier(t *testing.T) {
	coord := NewWindowMean(10)
	qual := NewGeometricMean(10)
	q := NewQualityGated(coord, qual, 1.0)

	for i := 0; i < 5; i++ {
		q.Update(Vec3{0, 0, 0})
	}
	// Wildly off sample should feed only the quality filter.
	q.Update(Vec3{100, 100, 100})

	assert.Equal(t, Vec3{0, 0, 0}, q.Value())
}

func TestQualityGatedAcceptsInlier(t *testing.T) {
	coord := NewWindowMean(10)
	qual := NewGeometricMean(10)
	q := NewQualityGated(coord, qual, 5.0)

	for i := 0; i < 5; i++ {
		q.Update(Vec3{0, 0, 0})
	}
	q.Update(Vec3{0.1, 0, 0})

	assert.InDelta(t, 0.1/6, q.Value().X, 1e-9)
}

func TestQualityGatedReset(t *testing.T) {
	coord := NewWindowMean(5)
	qual := NewGeometricMean(5)
	q := NewQualityGated(coord, qual, 1.0)
	q.Update(Vec3{1, 1, 1})
	q.Reset()
	assert.Equal(t, Vec3{}, q.Value())
}

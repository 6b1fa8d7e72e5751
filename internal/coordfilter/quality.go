package coordfilter

// QualityGated composes a coordinate filter with a quality filter: every
// update always feeds the quality filter, but only feeds the coordinate
// filter when the new sample is within maxDev of the quality filter's
// current value. This rejects transient outliers (a momentary bad solve)
// without ever losing track of "roughly where the tag actually is",
// since the quality filter keeps tracking through the rejected samples.
// The Go counterpart of CoordQCFilter.
type QualityGated struct {
	coord  Filter
	qual   Filter
	maxDev float64
}

// NewQualityGated composes coord and qual, which must themselves already
// be constructed and reset. maxDev is the rejection threshold.
func NewQualityGated(coord, qual Filter, maxDev float64) *QualityGated {
	q := &QualityGated{coord: coord, qual: qual, maxDev: maxDev}
	q.Reset()
	return q
}

func (q *QualityGated) Reset() {
	q.coord.Reset()
	q.qual.Reset()
}

func (q *QualityGated) Update(v Vec3) {
	q.qual.Update(v)
	if dist(q.qual.Value(), v) < q.maxDev {
		q.coord.Update(v)
	}
}

func (q *QualityGated) Value() Vec3 {
	return q.coord.Value()
}

func (q *QualityGated) Avg() Vec3 {
	return q.coord.Avg()
}

func (q *QualityGated) Var() float64 {
	return q.coord.Var()
}

func (q *QualityGated) Std() float64 {
	return q.coord.Std()
}

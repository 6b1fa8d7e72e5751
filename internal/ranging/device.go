package ranging

import (
	"math"
	"sync"

	"github.com/banshee-data/rtls/internal/coordfilter"
	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/tdoa"
)

// Anchor is a fixed radio of known coordinate that overhears tag
// transmissions and forwards timestamped observations. Active toggles on
// the AnchorSupervisor's ping cadence.
type Anchor struct {
	Name   string
	EUI64  eui64.Addr
	Coord  tdoa.Point

	mu     sync.RWMutex
	active bool
}

// NewAnchor creates an anchor handle at a fixed coordinate, initially
// inactive until its first successful ping.
func NewAnchor(name string, addr eui64.Addr, coord tdoa.Point) *Anchor {
	return &Anchor{Name: name, EUI64: addr, Coord: coord}
}

// Active reports whether the anchor's last ping succeeded.
func (a *Anchor) Active() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// SetActive updates the anchor's health flag.
func (a *Anchor) SetActive(v bool) {
	a.mu.Lock()
	a.active = v
	a.mu.Unlock()
}

// DistanceTo returns the Euclidean distance between two anchors'
// coordinates, used to compute a beacon-to-anchor geometric distance for
// the TDOA pseudo-range.
func (a *Anchor) DistanceTo(o *Anchor) float64 {
	dx := a.Coord.X - o.Coord.X
	dy := a.Coord.Y - o.Coord.Y
	dz := a.Coord.Z - o.Coord.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Tag is a mobile radio whose coordinate is computed by the server. Coord
// is the raw solved position from the most recent completed ranging
// session; Filter smooths it per §4.5.
type Tag struct {
	Name  string
	EUI64 eui64.Addr

	mu       sync.RWMutex
	coord    tdoa.Point
	filtered tdoa.Point
	filter   coordfilter.Filter
	beacon   *Anchor
}

// NewTag creates a tag handle backed by filter, which implements the
// configured coordinate-smoothing variant (§4.5).
func NewTag(name string, addr eui64.Addr, filter coordfilter.Filter) *Tag {
	return &Tag{Name: name, EUI64: addr, filter: filter}
}

// UpdateCoord records a newly solved position, updates the coordinate
// filter, and returns the raw and filtered positions to publish.
func (t *Tag) UpdateCoord(p tdoa.Point) (coord, filtered tdoa.Point) {
	v := coordfilter.Vec3{X: p.X, Y: p.Y, Z: p.Z}

	t.mu.Lock()
	t.coord = p
	t.filter.Update(v)
	fv := t.filter.Value()
	t.filtered = tdoa.Point{X: fv.X, Y: fv.Y, Z: fv.Z}
	coord, filtered = t.coord, t.filtered
	t.mu.Unlock()
	return coord, filtered
}

// Coord returns the tag's most recently solved raw and filtered
// positions.
func (t *Tag) Coord() (coord, filtered tdoa.Point) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.coord, t.filtered
}

// UpdateBeacon records the anchor most recently elected as this tag's
// one-way-ranging beacon.
func (t *Tag) UpdateBeacon(a *Anchor) {
	t.mu.Lock()
	t.beacon = a
	t.mu.Unlock()
}

// Beacon returns the anchor last elected as this tag's beacon, or nil.
func (t *Tag) Beacon() *Anchor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.beacon
}

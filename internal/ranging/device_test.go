package ranging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/coordfilter"
	"github.com/banshee-data/rtls/internal/tdoa"
)

func TestAnchorDistanceTo(t *testing.T) {
	a := NewAnchor("a", mustAddr(t, "0000000000000001"), tdoa.Point{X: 0, Y: 0, Z: 0})
	b := NewAnchor("b", mustAddr(t, "0000000000000002"), tdoa.Point{X: 3, Y: 4, Z: 0})
	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9)
}

func TestAnchorActiveDefaultsFalse(t *testing.T) {
	a := NewAnchor("a", mustAddr(t, "0000000000000001"), tdoa.Point{})
	assert.False(t, a.Active())
	a.SetActive(true)
	assert.True(t, a.Active())
}

func TestTagUpdateCoordFeedsFilter(t *testing.T) {
	filter := coordfilter.NewWindowMean(4)
	tag := NewTag("tag1", mustAddr(t, "0011223344556677"), filter)

	coord, filtered := tag.UpdateCoord(tdoa.Point{X: 1, Y: 2, Z: 3})
	require.Equal(t, tdoa.Point{X: 1, Y: 2, Z: 3}, coord)
	assert.Equal(t, coord, filtered)

	gotCoord, gotFiltered := tag.Coord()
	assert.Equal(t, coord, gotCoord)
	assert.Equal(t, filtered, gotFiltered)
}

func TestTagBeaconRoundTrip(t *testing.T) {
	tag := NewTag("tag1", mustAddr(t, "0011223344556677"), coordfilter.NewWindowMean(4))
	assert.Nil(t, tag.Beacon())

	a := NewAnchor("a", mustAddr(t, "0000000000000001"), tdoa.Point{})
	tag.UpdateBeacon(a)
	assert.Same(t, a, tag.Beacon())
}

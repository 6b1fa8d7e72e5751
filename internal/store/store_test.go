package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/tdoa"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "rtls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustAddr(t *testing.T, s string) eui64.Addr {
	t.Helper()
	a, err := eui64.Parse(s)
	require.NoError(t, err)
	return a
}

func TestOpenMigratesSchema(t *testing.T) {
	db := openTest(t)
	version, dirty, err := db.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestUpsertAndListAnchors(t *testing.T) {
	db := openTest(t)
	addr := mustAddr(t, "0011223344556677")

	require.NoError(t, db.UpsertAnchor(addr, "a1", tdoa.Point{X: 1, Y: 2, Z: 0}))
	require.NoError(t, db.UpsertAnchor(addr, "a1-renamed", tdoa.Point{X: 1, Y: 2, Z: 0}))

	anchors, err := db.ListAnchors()
	require.NoError(t, err)
	require.Len(t, anchors, 1)
	assert.Equal(t, "a1-renamed", anchors[0].Name)
}

func TestRecordAndRecentCoordinates(t *testing.T) {
	db := openTest(t)
	tag := "aabbccddeeff0011"

	for i := int64(0); i < 3; i++ {
		require.NoError(t, db.RecordCoordinate(tag, i, tdoa.Point{X: float64(i), Y: 0, Z: 0}, tdoa.Point{X: float64(i), Y: 0, Z: 0}))
	}

	recent, err := db.RecentCoordinates(tag, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2.0, recent[0].X)
	assert.Equal(t, 1.0, recent[1].X)
}

func TestRollupComputesMeanAndPercentiles(t *testing.T) {
	db := openTest(t)
	tag := "aabbccddeeff0011"

	for i := int64(0); i < 10; i++ {
		raw := tdoa.Point{X: float64(i), Y: 0, Z: 0}
		filtered := tdoa.Point{X: float64(i) - 0.1, Y: 0, Z: 0}
		require.NoError(t, db.RecordCoordinate(tag, i, raw, filtered))
	}

	roll, err := db.Rollup(tag, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, roll.Samples)
	assert.InDelta(t, 0.1, roll.P50ResidualM, 1e-9)
}

func TestSessionLifecycleRows(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.RecordSessionStart("ref1", "aabbccddeeff0011", 1000))
	require.NoError(t, db.RecordSessionOutcome("ref1", 1100, 4, true))

	row := db.QueryRow(`SELECT anchor_count, solved FROM ranging_sessions WHERE ref = ?`, "ref1")
	var anchorCount int
	var solved bool
	require.NoError(t, row.Scan(&anchorCount, &solved))
	assert.Equal(t, 4, anchorCount)
	assert.True(t, solved)
}

package ranging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/tail"
	"github.com/banshee-data/rtls/internal/tdoa"
	"github.com/banshee-data/rtls/internal/timeutil"
)

func eventFrameWithSrc(src eui64.Addr) tail.Frame {
	return tail.Frame{MAC: tail.MACHeader{SrcAddr: src}}
}

func newTestServer(t *testing.T) (*Server, *timeutil.MockClock) {
	t.Helper()
	clk := timeutil.NewMockClock(time.Unix(0, 0))
	cfg := DefaultConfig()
	srv := NewServer("site1", cfg, mqttbus.NewInProcBus(), clk)
	t.Cleanup(srv.Stop)
	return srv, clk
}

func TestSessionTimeoutDropsSilently(t *testing.T) {
	srv, clk := newTestServer(t)
	ref := Ref{1, 2, 3, 4, 5, 6, 7, 8}

	sess := srv.getOrCreateSession(ref)
	require.NotNil(t, sess)

	_, ok := srv.rangings[ref]
	assert.True(t, ok)

	// Let the wheel's dispatch goroutine register its sleep against the
	// mock clock before advancing it.
	time.Sleep(10 * time.Millisecond)
	clk.Advance(srv.cfg.TimeoutTimer + 10*time.Millisecond)
	require.Eventually(t, func() bool {
		srv.mu.RLock()
		defer srv.mu.RUnlock()
		_, ok := srv.rangings[ref]
		return !ok
	}, time.Second, time.Millisecond)
}

func TestSessionReusesExistingRefUntilFinished(t *testing.T) {
	srv, _ := newTestServer(t)
	ref := Ref{9, 9, 9, 9, 9, 9, 9, 9}

	a := srv.getOrCreateSession(ref)
	b := srv.getOrCreateSession(ref)
	assert.Same(t, a, b)
}

func TestAddResponseArmsRangingTimer(t *testing.T) {
	srv, _ := newTestServer(t)
	ref := Ref{1, 1, 1, 1, 1, 1, 1, 1}
	sess := srv.getOrCreateSession(ref)

	anchorKey := mustAddr(t, "aabbccddeeff0011")
	assert.False(t, sess.rangingTimer.Armed())
	sess.addResponse(Event{AnchorKey: anchorKey})
	assert.True(t, sess.rangingTimer.Armed())
}

func TestSolveWLS2DFailsUnderdetermined(t *testing.T) {
	srv, _ := newTestServer(t)
	beacon := NewAnchor("beacon", mustAddr(t, "0000000000000001"), tdoa.Point{})
	a2 := NewAnchor("a2", mustAddr(t, "0000000000000002"), tdoa.Point{X: 1})
	srv.AddAnchor(beacon)
	srv.AddAnchor(a2)

	ref := Ref{2, 2, 2, 2, 2, 2, 2, 2}
	sess := srv.getOrCreateSession(ref)
	sess.Algorithm = AlgoWLS2D

	_, err := sess.solveWLS(beacon, 2)
	require.Error(t, err)
}

func TestFindBeaconPicksMostFrequentSource(t *testing.T) {
	srv, _ := newTestServer(t)
	winner := mustAddr(t, "0000000000000001")
	loser := mustAddr(t, "0000000000000002")
	a1 := NewAnchor("a1", winner, tdoa.Point{})
	a2 := NewAnchor("a2", loser, tdoa.Point{})
	srv.AddAnchor(a1)
	srv.AddAnchor(a2)

	ref := Ref{3, 3, 3, 3, 3, 3, 3, 3}
	sess := srv.getOrCreateSession(ref)

	sess.buckets[1][eui64.Addr{10}] = Event{Frame: eventFrameWithSrc(winner)}
	sess.buckets[1][eui64.Addr{11}] = Event{Frame: eventFrameWithSrc(winner)}
	sess.buckets[1][eui64.Addr{12}] = Event{Frame: eventFrameWithSrc(loser)}

	found, err := sess.findBeacon()
	require.NoError(t, err)
	assert.Equal(t, winner, found.EUI64)
}

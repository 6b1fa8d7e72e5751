package ranging

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/tdoa"
	"github.com/banshee-data/rtls/internal/timeutil"
)

func TestHandleRFIgnoresUnregisteredAnchor(t *testing.T) {
	srv, _ := newTestServer(t)
	frameBytes := buildBlinkFrame(t, mustAddr(t, "0011223344556677"), 1)

	msg := mqttbus.RFEvent{Anchor: "aabbccddeeff0011", Frame: hex.EncodeToString(frameBytes)}
	payload, err := mqttbus.EncodeRFEvent(msg)
	require.NoError(t, err)

	srv.handleRF(mqttbus.RFTopic("site1", "aabbccddeeff0011"), payload)

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	assert.Empty(t, srv.rangings)
}

func TestHandleRFBlinkCreatesSessionAndTag(t *testing.T) {
	srv, _ := newTestServer(t)
	anchor := NewAnchor("a1", mustAddr(t, "aabbccddeeff0011"), tdoa.Point{})
	srv.AddAnchor(anchor)

	tag := mustAddr(t, "0011223344556677")
	frameBytes := buildBlinkFrame(t, tag, 3)

	msg := mqttbus.RFEvent{Anchor: anchor.EUI64.String(), Frame: hex.EncodeToString(frameBytes)}
	payload, err := mqttbus.EncodeRFEvent(msg)
	require.NoError(t, err)

	srv.handleRF(mqttbus.RFTopic("site1", anchor.EUI64.String()), payload)

	ref := MakeRef(tag, 3)
	srv.mu.RLock()
	sess, ok := srv.rangings[ref]
	srv.mu.RUnlock()
	require.True(t, ok)

	_, gotTag := srv.GetTag(tag)
	assert.True(t, gotTag)

	sess.mu.Lock()
	_, sawBlink := sess.buckets[0][anchor.EUI64]
	sess.mu.Unlock()
	assert.True(t, sawBlink)
}

func TestServerPublishCoordPublishesToTagTopic(t *testing.T) {
	bus := mqttbus.NewInProcBus()
	clk := timeutil.NewMockClock(time.Unix(0, 0))
	srv := NewServer("site1", DefaultConfig(), bus, clk)
	t.Cleanup(srv.Stop)

	tagAddr := mustAddr(t, "0011223344556677")
	tag := srv.getOrCreateTag(tagAddr)

	var gotPayload []byte
	require.NoError(t, bus.Subscribe(mqttbus.CoordTopic("site1", tagAddr.String()), func(_ string, payload []byte) {
		gotPayload = payload
	}))

	srv.publishCoord(tag, tdoa.Point{X: 1, Y: 2, Z: 3}, tdoa.Point{X: 1.1, Y: 2.1, Z: 3.1})

	require.NotNil(t, gotPayload)
	msg, err := mqttbus.DecodeCoordMessage(gotPayload)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, msg.Coord)
	assert.Equal(t, tagAddr.String(), msg.Tag)
}


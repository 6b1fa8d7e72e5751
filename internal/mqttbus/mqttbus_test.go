package mqttbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicBuilders(t *testing.T) {
	assert.Equal(t, "TAIL/RF/site1/0011223344556677", RFTopic("site1", "0011223344556677"))
	assert.Equal(t, "TAIL/RPC/server", RPCTopic("server"))
	assert.Equal(t, "TAIL/RPC/BROADCAST", RPCBroadcastTopic)
	assert.Equal(t, "TAIL/TAG/site1/aabbccddeeff0011/COORD", CoordTopic("site1", "aabbccddeeff0011"))
}

func TestRFEventRoundTrip(t *testing.T) {
	e := RFEvent{
		Anchor: "0011223344556677",
		Dir:    DirRX,
		Times:  RXTimes{SW: 1.5, HW: 2.5, HI: 3.5},
		Frame:  "410cc82a",
		FInfo:  "deadbeef",
	}
	data, err := EncodeRFEvent(e)
	require.NoError(t, err)

	decoded, err := DecodeRFEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func TestCoordMessageRoundTrip(t *testing.T) {
	m := CoordMessage{
		Tag:      "aabbccddeeff0011",
		Name:     "tag-1",
		Coord:    [3]float64{1, 2, 3},
		Filtered: [3]float64{1.1, 2.1, 3.1},
	}
	data, err := EncodeCoordMessage(m)
	require.NoError(t, err)

	decoded, err := DecodeCoordMessage(data)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestInProcBusDeliversOnlyToSubscribedTopic(t *testing.T) {
	bus := NewInProcBus()

	var gotA, gotB []byte
	require.NoError(t, bus.Subscribe("topic/a", func(topic string, payload []byte) { gotA = payload }))
	require.NoError(t, bus.Subscribe("topic/b", func(topic string, payload []byte) { gotB = payload }))

	require.NoError(t, bus.Publish("topic/a", []byte("hello")))
	assert.Equal(t, []byte("hello"), gotA)
	assert.Nil(t, gotB)
}

func TestInProcBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewInProcBus()

	calls := 0
	require.NoError(t, bus.Subscribe("topic/a", func(topic string, payload []byte) { calls++ }))
	require.NoError(t, bus.Publish("topic/a", []byte("1")))
	require.NoError(t, bus.Unsubscribe("topic/a"))
	require.NoError(t, bus.Publish("topic/a", []byte("2")))

	assert.Equal(t, 1, calls)
}

func TestInProcBusMultipleHandlersSameTopic(t *testing.T) {
	bus := NewInProcBus()

	var calls int
	require.NoError(t, bus.Subscribe("topic/a", func(topic string, payload []byte) { calls++ }))
	require.NoError(t, bus.Subscribe("topic/a", func(topic string, payload []byte) { calls++ }))
	require.NoError(t, bus.Publish("topic/a", []byte("x")))

	assert.Equal(t, 2, calls)
}

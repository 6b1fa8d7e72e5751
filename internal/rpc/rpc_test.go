package rpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/rtlserr"
)

func TestPingRoundTrip(t *testing.T) {
	bus := mqttbus.NewInProcBus()

	anchor, err := NewClient(bus, "anchor-1")
	require.NoError(t, err)
	defer anchor.Close()

	server, err := NewClient(bus, "server")
	require.NoError(t, err)
	defer server.Close()

	reply, err := server.CallTimeout("anchor-1", "PING", map[string]any{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(reply))
}

func TestRegisterCustomFunction(t *testing.T) {
	bus := mqttbus.NewInProcBus()

	anchor, err := NewClient(bus, "anchor-1")
	require.NoError(t, err)
	defer anchor.Close()

	anchor.Register("GETDWATTR", func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct{ Attr string }
		json.Unmarshal(args, &req)
		return map[string]any{"value": "channel=5"}, nil
	})

	server, err := NewClient(bus, "server")
	require.NoError(t, err)
	defer server.Close()

	reply, err := server.CallTimeout("anchor-1", "GETDWATTR", map[string]any{"ATTR": "channel"}, time.Second)
	require.NoError(t, err)

	var result struct{ Value string }
	require.NoError(t, json.Unmarshal(reply, &result))
	assert.Equal(t, "channel=5", result.Value)
}

func TestCallTimesOutWhenNoReply(t *testing.T) {
	bus := mqttbus.NewInProcBus()

	server, err := NewClient(bus, "server")
	require.NoError(t, err)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = server.Call(ctx, "nonexistent", "PING", map[string]any{})
	assert.ErrorIs(t, err, rtlserr.ErrRPCTimeout)
}

func TestPostIsFireAndForget(t *testing.T) {
	bus := mqttbus.NewInProcBus()

	var gotCalls int
	anchor, err := NewClient(bus, "anchor-1")
	require.NoError(t, err)
	defer anchor.Close()
	anchor.Register("RESET", func(ctx context.Context, args json.RawMessage) (any, error) {
		gotCalls++
		return nil, nil
	})

	server, err := NewClient(bus, "server")
	require.NoError(t, err)
	defer server.Close()

	require.NoError(t, server.Post("anchor-1", "RESET", map[string]any{}))
	assert.Equal(t, 1, gotCalls)
}

func TestVersionMismatchIgnored(t *testing.T) {
	bus := mqttbus.NewInProcBus()

	anchor, err := NewClient(bus, "anchor-1")
	require.NoError(t, err)
	defer anchor.Close()

	var handlerCalls int
	anchor.Register("PING", func(ctx context.Context, args json.RawMessage) (any, error) {
		handlerCalls++
		return map[string]any{}, nil
	})

	bad := Envelope{Ver: "MQRPC/0.9", Src: "server", Dst: "anchor-1", UID: "x", Func: "PING"}
	data, _ := json.Marshal(bad)
	require.NoError(t, bus.Publish(mqttbus.RPCTopic("anchor-1"), data))

	assert.Equal(t, 0, handlerCalls)
}

func TestBroadcastCallReachesAllSubscribers(t *testing.T) {
	bus := mqttbus.NewInProcBus()

	var a1, a2 int
	anchor1, err := NewClient(bus, "anchor-1")
	require.NoError(t, err)
	defer anchor1.Close()
	anchor1.Register("RESET", func(ctx context.Context, args json.RawMessage) (any, error) { a1++; return nil, nil })

	anchor2, err := NewClient(bus, "anchor-2")
	require.NoError(t, err)
	defer anchor2.Close()
	anchor2.Register("RESET", func(ctx context.Context, args json.RawMessage) (any, error) { a2++; return nil, nil })

	server, err := NewClient(bus, "server")
	require.NoError(t, err)
	defer server.Close()

	require.NoError(t, server.BroadcastCall("RESET", map[string]any{}))
	assert.Equal(t, 1, a1)
	assert.Equal(t, 1, a2)
}

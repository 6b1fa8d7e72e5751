package livestream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/ranging"
	"github.com/banshee-data/rtls/internal/timeutil"
)

type fakeServerStream struct {
	grpc.ServerStream
	ctx  context.Context
	sent []*structpb.Struct
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }
func (f *fakeServerStream) SendMsg(m interface{}) error {
	f.sent = append(f.sent, m.(*structpb.Struct))
	return nil
}

func TestServerRosterReportsRegisteredAnchorsAndTags(t *testing.T) {
	rsrv := ranging.NewServer("site1", ranging.DefaultConfig(), mqttbus.NewInProcBus(), timeutil.NewMockClock(time.Unix(0, 0)))
	t.Cleanup(rsrv.Stop)
	addr, err := eui64.Parse("0011223344556677")
	require.NoError(t, err)
	rsrv.AddAnchor(ranging.NewAnchor("a1", addr, ranging.Anchor{}.Coord))

	ls := NewServer("site1", mqttbus.NewInProcBus(), rsrv)
	got, err := ls.Roster(context.Background(), nil)
	require.NoError(t, err)

	anchors := got.Fields["anchors"].GetListValue().Values
	require.Len(t, anchors, 1)
	assert.Equal(t, "a1", anchors[0].GetStringValue())
}

func TestStreamCoordinatesFansOutPublishedUpdates(t *testing.T) {
	bus := mqttbus.NewInProcBus()
	rsrv := ranging.NewServer("site1", ranging.DefaultConfig(), bus, timeutil.NewMockClock(time.Unix(0, 0)))
	t.Cleanup(rsrv.Stop)

	ls := NewServer("site1", bus, rsrv)
	require.NoError(t, ls.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream := &coordinatesStreamCoordinatesServer{&fakeServerStream{ctx: ctx}}
	done := make(chan error, 1)
	go func() { done <- ls.StreamCoordinates(nil, stream) }()

	payload, err := mqttbus.EncodeCoordMessage(mqttbus.CoordMessage{Tag: "aabbccddeeff0011", Name: "t1", Coord: [3]float64{1, 2, 3}})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(mqttbus.CoordTopic("site1", "aabbccddeeff0011"), payload))

	require.Eventually(t, func() bool {
		return len(stream.ServerStream.(*fakeServerStream).sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

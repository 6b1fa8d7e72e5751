package tail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/eui64"
)

func TestTagBlinkRoundTrip(t *testing.T) {
	src, err := eui64.Parse("0102030405060708")
	require.NoError(t, err)

	f := Frame{
		MAC: MACHeader{
			FrameType: FrameTypeData,
			PANIDComp: true,
			SeqNum:    42,
			DstMode:   AddrModeShort,
			DstPAN:    0xffff,
			DstShort:  0xffff,
			SrcMode:   AddrModeEUI64,
			SrcPAN:    0xffff,
			SrcAddr:   src,
		},
		Protocol: ProtoStandard,
		FrmType:  FrmTagBlink,
		Listen:   true,
		Accel:    true,
		IEIDs:    []byte{0x01, 0x40},
		IEValues: []uint32{50, 16384},
	}

	out, err := f.Encode()
	require.NoError(t, err)

	want := []byte{
		0x41, 0xc8, 0x2a, 0xff, 0xff, 0xff, 0xff,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x37, 0x04, 0xc0,
	}
	require.GreaterOrEqual(t, len(out), len(want))
	assert.Equal(t, want, out[:len(want)])

	decoded, err := Decode(out)
	require.NoError(t, err)
	require.NotNil(t, decoded.IEs)
	assert.InDelta(t, 3.589, decoded.IEs["Vreg"].(float64), 0.0005)
	assert.Equal(t, 2.500, decoded.IEs["Vbatt"].(float64))
	assert.True(t, decoded.Listen)
	assert.True(t, decoded.Accel)
	assert.False(t, decoded.DCin)
	assert.False(t, decoded.Salt)
	assert.Equal(t, src, decoded.MAC.SrcAddr)
	assert.Equal(t, eui64.Short(0xffff), decoded.MAC.DstShort)

	reencoded, err := decoded.Encode()
	require.NoError(t, err)
	// decoded IEIDs/IEValues are empty (decode only populates the semantic
	// IEs table), so a naive re-encode drops the IE block and clears the
	// IE-present subtype bit; the MAC header and tag-blink flags, the only
	// fields decode fully preserves, still round-trip exactly.
	wantNoIEs := append([]byte(nil), want...)
	wantNoIEs[16] = 0x00
	assert.Equal(t, wantNoIEs, reencoded)
}

func TestAnchorBeaconWireOrder(t *testing.T) {
	ref, err := eui64.Parse("deadbeefcafef00d")
	require.NoError(t, err)

	f := Frame{
		MAC: MACHeader{
			FrameType: FrameTypeData,
			SeqNum:    1,
		},
		Protocol:  ProtoStandard,
		FrmType:   FrmAnchorBeacon,
		BeaconRef: ref,
	}

	out, err := f.Encode()
	require.NoError(t, err)

	want := []byte{0x0d, 0xf0, 0xfe, 0xca, 0xef, 0xbe, 0xad, 0xde}
	assert.Equal(t, want, out[len(out)-8:])

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, ref, decoded.BeaconRef)
}

func TestRawPassthroughUnknownMagic(t *testing.T) {
	// no dst/src addressing (AddrModeNone), so header is just fc+seq
	f := Frame{
		MAC:      MACHeader{FrameType: FrameTypeData, SeqNum: 1},
		Protocol: ProtoNone,
		Raw:      []byte{0x99, 0x01, 0x02},
	}
	out, err := f.Encode()
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, ProtoNone, decoded.Protocol)
	assert.Equal(t, f.Raw, decoded.Raw)
}

func TestRangingResponseAddressWidthBitmap(t *testing.T) {
	long, err := eui64.Parse("0102030405060708")
	require.NoError(t, err)

	f := Frame{
		MAC:      MACHeader{FrameType: FrameTypeData, SeqNum: 7},
		Protocol: ProtoStandard,
		FrmType:  FrmRangingResp,
		OWR:      false,
		TxTime:   12345,
		RxTimes: []RxReport{
			{IsShort: true, Short: eui64.Short(0x0102), RxTime: 111},
			{IsShort: false, Addr: long, RxTime: 222},
			{IsShort: true, Short: eui64.Short(0x0304), RxTime: 333},
		},
	}

	out, err := f.Encode()
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	require.Len(t, decoded.RxTimes, 3)
	assert.True(t, decoded.RxTimes[0].IsShort)
	assert.Equal(t, eui64.Short(0x0102), decoded.RxTimes[0].Short)
	assert.EqualValues(t, 111, decoded.RxTimes[0].RxTime)
	assert.False(t, decoded.RxTimes[1].IsShort)
	assert.Equal(t, long, decoded.RxTimes[1].Addr)
	assert.EqualValues(t, 222, decoded.RxTimes[1].RxTime)
	assert.True(t, decoded.RxTimes[2].IsShort)
	assert.EqualValues(t, 333, decoded.RxTimes[2].RxTime)
	assert.EqualValues(t, 12345, decoded.TxTime)
}

func TestConfigReadRoundTrip(t *testing.T) {
	f := Frame{
		MAC:       MACHeader{FrameType: FrameTypeData, SeqNum: 3},
		Protocol:  ProtoStandard,
		FrmType:   FrmConfigResponse,
		ConfigSub: ConfigRead,
		ConfigValues: map[uint16][]byte{
			0x0001: {0xaa, 0xbb},
		},
	}
	out, err := f.Encode()
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, f.ConfigValues, decoded.ConfigValues)
}

func TestDecodeShortFrameIsParseError(t *testing.T) {
	_, err := Decode([]byte{0x00})
	assert.Error(t, err)
}

func TestIEWidthClassification(t *testing.T) {
	assert.Equal(t, ieWidthU8, widthOf(0x01))
	assert.Equal(t, ieWidthU16, widthOf(0x40))
}

package ranging

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/rfmodel"
	"github.com/banshee-data/rtls/internal/tail"
)

// Event is a single decoded RF reception or transmission report from one
// anchor, carrying both the MAC/Tail frame and the per-reception timing
// diagnostics needed by the TDOA solver and the RX-level calculations
// used for beacon/common-anchor election.
type Event struct {
	AnchorKey eui64.Addr
	Dir       string
	Recv      time.Time
	Frame     tail.Frame
	Info      rfmodel.TimestampInfo
}

// DecodeEvent parses the anchor-to-server MQTT RF payload into an Event.
func DecodeEvent(anchorKey eui64.Addr, msg mqttbus.RFEvent) (Event, error) {
	frameBytes, err := hex.DecodeString(msg.Frame)
	if err != nil {
		return Event{}, fmt.Errorf("ranging: decode FRAME hex: %w", err)
	}
	frame, err := tail.Decode(frameBytes)
	if err != nil {
		return Event{}, err
	}

	var info rfmodel.TimestampInfo
	if msg.FInfo != "" {
		infoBytes, err := hex.DecodeString(msg.FInfo)
		if err != nil {
			return Event{}, fmt.Errorf("ranging: decode FINFO hex: %w", err)
		}
		info, err = rfmodel.DecodeTimestampInfo(infoBytes)
		if err != nil {
			return Event{}, err
		}
	}

	return Event{
		AnchorKey: anchorKey,
		Dir:       msg.Dir,
		Frame:     frame,
		Info:      info,
	}, nil
}

// Timestamp returns the raw hardware timestamp this event carries, the
// six-timestamp input to the woodoo TDOA formula.
func (e Event) Timestamp() float64 {
	return float64(e.Info.RawTS)
}

// RangingRef computes the ranging-reference this event correlates under,
// per the frame-type rules in §3: MD5(src||seq) for blinks, MD5(src||seq-1)
// for ranging responses, and the carried beacon reference for beacons.
// Ranging requests have no defined reference in this codec (the original
// raises NotImplementedError for TWR); ok is false for any frame type not
// covered.
func (e Event) RangingRef() (Ref, bool) {
	if e.Frame.Protocol != tail.ProtoStandard {
		return Ref{}, false
	}
	switch e.Frame.FrmType {
	case tail.FrmTagBlink:
		return MakeRef(e.Frame.MAC.SrcAddr, e.Frame.MAC.SeqNum), true
	case tail.FrmRangingResp:
		return MakeRef(e.Frame.MAC.SrcAddr, e.Frame.MAC.SeqNum-1), true
	case tail.FrmAnchorBeacon:
		var ref Ref
		copy(ref[:], e.Frame.BeaconRef[:])
		return ref, true
	default:
		return Ref{}, false
	}
}

// RxLevel estimates the received signal level in dBm from the CIR power
// and preamble accumulation count, per event.py's get_rx_level. Returns
// -120 dBm (the original's floor sentinel) when the diagnostics are
// absent or non-positive.
func (e Event) RxLevel(prf int) float64 {
	pow := float64(e.Info.CIRPwr)
	rxpacc := float64(e.Info.RxPACC)
	if pow <= 0 || rxpacc <= 0 {
		return -120
	}
	power := (pow * 131072) / (rxpacc * rxpacc) // 1<<17 == 131072
	level, err := rfmodel.RxLevelDBm(power, prf)
	if err != nil {
		return -120
	}
	return level
}

// SrcAddr returns the frame's source EUI64, the tag identity a blink or
// ranging response carries.
func (e Event) SrcAddr() eui64.Addr {
	return e.Frame.MAC.SrcAddr
}

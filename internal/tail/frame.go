package tail

import (
	"fmt"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/rtlserr"
)

const (
	MagicStandard = 0x37
	MagicEncrypted = 0x38
)

// FrmType is the 4-bit Tail payload frame type carried in the high nibble
// of the byte following the magic.
type FrmType uint8

const (
	FrmTagBlink       FrmType = 0
	FrmAnchorBeacon   FrmType = 1
	FrmRangingRequest FrmType = 2
	FrmRangingResp    FrmType = 3
	FrmConfigRequest  FrmType = 4
	FrmConfigResponse FrmType = 5
	FrmAnchorAux      FrmType = 15
)

// ConfigSub is the config request/response subtype.
type ConfigSub uint8

const (
	ConfigReset     ConfigSub = 0
	ConfigEnumerate ConfigSub = 1
	ConfigRead      ConfigSub = 2
	ConfigWrite     ConfigSub = 3
	ConfigDelete    ConfigSub = 4
	ConfigSalt      ConfigSub = 5
	ConfigTest      ConfigSub = 15
)

// Protocol identifies how the bytes after the MAC header were interpreted.
type Protocol uint8

const (
	ProtoNone Protocol = iota
	ProtoStandard
	ProtoEncrypted
)

// RxReport is one per-anchor timing entry in a ranging response or anchor
// aux frame. The address is either the full eui64.Addr in Addr (IsShort
// false) or the 16-bit short address in Short (IsShort true), matching the
// per-entry width bit in the frame.
type RxReport struct {
	Addr      eui64.Addr
	Short     eui64.Short
	IsShort   bool
	RxTime    Timestamp
	HasTime   bool
	RxInfo    [4]uint16
	HasInfo   bool
}

func (r RxReport) key() string {
	if r.IsShort {
		return fmt.Sprintf("s:%04x", uint16(r.Short))
	}
	return "e:" + r.Addr.String()
}

// Frame is a fully decoded MAC header plus Tail payload.
type Frame struct {
	MAC MACHeader

	Protocol Protocol
	Raw      []byte // set when Protocol is ProtoNone or ProtoEncrypted

	FrmType FrmType
	Subtype uint8

	// TAG_BLINK
	Listen, Accel, DCin, Salt bool
	Cookie                    []byte
	IEs                       IETable // decoded, semantic-name + converted-value form

	// IEIDs/IEValues carry the raw id/value pairs to encode for a TAG_BLINK
	// frame. IEs is populated only by Decode; to build a frame by hand, set
	// these instead.
	IEIDs    []byte
	IEValues []uint32

	// ANCHOR_BEACON
	BeaconFlags byte
	BeaconRef   eui64.Addr

	// RANGING_RESPONSE
	OWR     bool
	TxTime  Timestamp
	RxTimes []RxReport

	// CONFIG_REQUEST / CONFIG_RESPONSE
	ConfigSub    ConfigSub
	ResetMagic   uint16
	Iterator     uint16
	ConfigKeys   []uint16
	ConfigValues map[uint16][]byte
	RespCode     uint8
	ConfigSalt   []byte
	ConfigTest   []byte

	// ANCHOR_AUX
	Timing       bool
	HasTxTime    bool
	AuxRxReports []RxReport
}

// Decode parses a full 802.15.4 frame (MAC header plus Tail payload).
func Decode(data []byte) (Frame, error) {
	var f Frame

	mac, ptr, err := DecodeMACHeader(data)
	if err != nil {
		return f, err
	}
	f.MAC = mac

	if ptr >= len(data) {
		f.Protocol = ProtoNone
		f.Raw = nil
		return f, nil
	}

	magic := data[ptr]
	switch magic {
	case MagicStandard:
		f.Protocol = ProtoStandard
		if err := f.decodeStandard(data[ptr+1:]); err != nil {
			return f, err
		}
	case MagicEncrypted:
		f.Protocol = ProtoEncrypted
		f.Raw = append([]byte(nil), data[ptr+1:]...)
	default:
		f.Protocol = ProtoNone
		f.Raw = append([]byte(nil), data[ptr:]...)
	}

	return f, nil
}

func (f *Frame) decodeStandard(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("tail: empty standard payload: %w", rtlserr.ErrParse)
	}
	b := data[0]
	f.FrmType = FrmType(getbits(uint16(b), 4, 4))
	f.Subtype = uint8(getbits(uint16(b), 0, 4))
	ptr := 1

	switch f.FrmType {
	case FrmTagBlink:
		return f.decodeTagBlink(data, ptr)
	case FrmAnchorBeacon:
		return f.decodeAnchorBeacon(data, ptr)
	case FrmRangingRequest:
		f.BeaconFlags = 0
		if ptr < len(data) {
			f.BeaconFlags = data[ptr]
		}
		return nil
	case FrmRangingResp:
		return f.decodeRangingResponse(data, ptr)
	case FrmConfigRequest:
		return f.decodeConfigRequest(data, ptr)
	case FrmConfigResponse:
		return f.decodeConfigResponse(data, ptr)
	case FrmAnchorAux:
		return f.decodeAnchorAux(data, ptr)
	default:
		return fmt.Errorf("tail: unknown frame type %d: %w", f.FrmType, rtlserr.ErrUnsupportedFrame)
	}
}

func (f *Frame) decodeTagBlink(data []byte, ptr int) error {
	eiePresent := testbit(uint16(f.Subtype), 1)
	iesPresent := testbit(uint16(f.Subtype), 2)
	cookiePresent := testbit(uint16(f.Subtype), 3)

	if len(data) < ptr+1 {
		return fmt.Errorf("tail: short tag blink flags: %w", rtlserr.ErrParse)
	}
	flags := data[ptr]
	ptr++
	f.Listen = testbit(uint16(flags), 7)
	f.Accel = testbit(uint16(flags), 6)
	f.DCin = testbit(uint16(flags), 5)
	f.Salt = testbit(uint16(flags), 4)

	if cookiePresent {
		if len(data) < ptr+16 {
			return fmt.Errorf("tail: short cookie: %w", rtlserr.ErrParse)
		}
		f.Cookie = append([]byte(nil), data[ptr:ptr+16]...)
		ptr += 16
	}

	if iesPresent {
		ies, n, err := decodeIEs(data[ptr:])
		if err != nil {
			return err
		}
		f.IEs = ies
		ptr += n
	}

	if eiePresent {
		return fmt.Errorf("tail: extended IEs not supported: %w", rtlserr.ErrUnsupportedFrame)
	}
	return nil
}

func (f *Frame) decodeAnchorBeacon(data []byte, ptr int) error {
	if len(data) < ptr+1+8 {
		return fmt.Errorf("tail: short anchor beacon: %w", rtlserr.ErrParse)
	}
	f.BeaconFlags = data[ptr]
	ptr++
	ref, err := eui64.FromWireBytes(data[ptr : ptr+8])
	if err != nil {
		return fmt.Errorf("tail: beacon ref: %w", err)
	}
	f.BeaconRef = ref
	return nil
}

func decodeRxReports(data []byte, ptr int) ([]RxReport, int, error) {
	if len(data) < ptr+1 {
		return nil, 0, fmt.Errorf("tail: short rx count: %w", rtlserr.ErrParse)
	}
	count := int(data[ptr])
	ptr++

	bitBytes := (count + 7) / 8
	if len(data) < ptr+bitBytes {
		return nil, 0, fmt.Errorf("tail: short rx address-width bitmap: %w", rtlserr.ErrParse)
	}
	var bits uint64
	for i := 0; i < bitBytes; i++ {
		bits |= uint64(data[ptr+i]) << (8 * i)
	}
	ptr += bitBytes

	reports := make([]RxReport, 0, count)
	for i := 0; i < count; i++ {
		isShort := bits&(1<<uint(i)) == 0
		var rep RxReport
		rep.IsShort = isShort
		if isShort {
			if len(data) < ptr+2 {
				return nil, 0, fmt.Errorf("tail: short rx short addr: %w", rtlserr.ErrParse)
			}
			s, err := eui64.ShortFromWireBytes(data[ptr : ptr+2])
			if err != nil {
				return nil, 0, err
			}
			rep.Short = s
			ptr += 2
		} else {
			if len(data) < ptr+8 {
				return nil, 0, fmt.Errorf("tail: short rx eui64 addr: %w", rtlserr.ErrParse)
			}
			a, err := eui64.FromWireBytes(data[ptr : ptr+8])
			if err != nil {
				return nil, 0, err
			}
			rep.Addr = a
			ptr += 8
		}
		reports = append(reports, rep)
	}
	return reports, ptr, nil
}

func (f *Frame) decodeRangingResponse(data []byte, ptr int) error {
	f.OWR = testbit(uint16(f.Subtype), 3)

	if len(data) < ptr+5 {
		return fmt.Errorf("tail: short ranging response txtime: %w", rtlserr.ErrParse)
	}
	ts, err := DecodeTimestamp(data[ptr : ptr+5])
	if err != nil {
		return err
	}
	f.TxTime = ts
	ptr += 5

	if f.OWR {
		return nil
	}

	reports, newPtr, err := decodeRxReports(data, ptr)
	if err != nil {
		return err
	}
	ptr = newPtr

	for i := range reports {
		if len(data) < ptr+5 {
			return fmt.Errorf("tail: short ranging response rxtime: %w", rtlserr.ErrParse)
		}
		rt, err := DecodeTimestamp(data[ptr : ptr+5])
		if err != nil {
			return err
		}
		reports[i].RxTime = rt
		reports[i].HasTime = true
		ptr += 5
	}
	f.RxTimes = reports
	return nil
}

func (f *Frame) decodeAnchorAux(data []byte, ptr int) error {
	f.Timing = testbit(uint16(f.Subtype), 3)
	hasTxTime := testbit(uint16(f.Subtype), 2)
	hasRxTime := testbit(uint16(f.Subtype), 1)
	hasRxInfo := testbit(uint16(f.Subtype), 0)

	if hasTxTime {
		if len(data) < ptr+5 {
			return fmt.Errorf("tail: short anchor aux txtime: %w", rtlserr.ErrParse)
		}
		ts, err := DecodeTimestamp(data[ptr : ptr+5])
		if err != nil {
			return err
		}
		f.TxTime = ts
		f.HasTxTime = true
		ptr += 5
	}

	if !hasRxTime && !hasRxInfo {
		return nil
	}

	reports, newPtr, err := decodeRxReports(data, ptr)
	if err != nil {
		return err
	}
	ptr = newPtr

	for i := range reports {
		if hasRxTime {
			if len(data) < ptr+5 {
				return fmt.Errorf("tail: short anchor aux rxtime: %w", rtlserr.ErrParse)
			}
			rt, err := DecodeTimestamp(data[ptr : ptr+5])
			if err != nil {
				return err
			}
			reports[i].RxTime = rt
			reports[i].HasTime = true
			ptr += 5
		}
		if hasRxInfo {
			if len(data) < ptr+8 {
				return fmt.Errorf("tail: short anchor aux rxinfo: %w", rtlserr.ErrParse)
			}
			for j := 0; j < 4; j++ {
				reports[i].RxInfo[j] = uint16(data[ptr+2*j]) | uint16(data[ptr+2*j+1])<<8
			}
			reports[i].HasInfo = true
			ptr += 8
		}
	}
	f.AuxRxReports = reports
	return nil
}

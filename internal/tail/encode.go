package tail

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

// Encode renders f as the bytes that would appear on the air: the MAC
// header followed by the Tail payload, if any.
func (f Frame) Encode() ([]byte, error) {
	out := EncodeMACHeader(f.MAC)

	switch f.Protocol {
	case ProtoNone:
		return append(out, f.Raw...), nil
	case ProtoEncrypted:
		out = append(out, MagicEncrypted)
		return append(out, f.Raw...), nil
	case ProtoStandard:
		out = append(out, MagicStandard)
	default:
		return nil, fmt.Errorf("tail: unknown protocol %d", f.Protocol)
	}

	payload, err := f.encodeStandard()
	if err != nil {
		return nil, err
	}
	return append(out, payload...), nil
}

func (f Frame) encodeStandard() ([]byte, error) {
	switch f.FrmType {
	case FrmTagBlink:
		return f.encodeTagBlink()
	case FrmAnchorBeacon:
		return f.encodeAnchorBeacon()
	case FrmRangingRequest:
		frame := byte(makebits(uint16(FrmRangingRequest), 4, 4) | makebits(uint16(f.Subtype), 0, 4))
		return []byte{frame, f.BeaconFlags}, nil
	case FrmRangingResp:
		return f.encodeRangingResponse()
	case FrmConfigRequest:
		return f.encodeConfigRequest()
	case FrmConfigResponse:
		return f.encodeConfigResponse()
	case FrmAnchorAux:
		return f.encodeAnchorAux()
	default:
		return nil, fmt.Errorf("tail: unknown frame type %d: %w", f.FrmType, rtlserr.ErrUnsupportedFrame)
	}
}

// encodeTagBlink builds a TAG_BLINK payload. IEs are taken from IEIDs/
// IEValues (the raw register values a tag would report), not from the
// decoded, unit-converted IEs field.
func (f Frame) encodeTagBlink() ([]byte, error) {
	hasIEs := len(f.IEIDs) > 0

	var subtype uint8
	if f.Cookie != nil {
		subtype |= 1 << 3
	}
	if hasIEs {
		subtype |= 1 << 2
	}
	frame := byte(makebits(uint16(FrmTagBlink), 4, 4) | makebits(uint16(subtype), 0, 4))

	var flags byte
	if f.Listen {
		flags |= 1 << 7
	}
	if f.Accel {
		flags |= 1 << 6
	}
	if f.DCin {
		flags |= 1 << 5
	}
	if f.Salt {
		flags |= 1 << 4
	}

	out := []byte{frame, flags}
	if f.Cookie != nil {
		if len(f.Cookie) != 16 {
			return nil, fmt.Errorf("tail: cookie must be 16 bytes, got %d", len(f.Cookie))
		}
		out = append(out, f.Cookie...)
	}
	if hasIEs {
		ieBytes, err := encodeIEs(f.IEIDs, f.IEValues)
		if err != nil {
			return nil, err
		}
		out = append(out, ieBytes...)
	}
	return out, nil
}

func (f Frame) encodeAnchorBeacon() ([]byte, error) {
	frame := byte(makebits(uint16(FrmAnchorBeacon), 4, 4) | makebits(uint16(f.Subtype), 0, 4))
	out := []byte{frame, f.BeaconFlags}
	return append(out, f.BeaconRef.WireBytes()...), nil
}

func encodeRxReports(reports []RxReport, withTime, withInfo bool) []byte {
	cnt := len(reports)
	out := []byte{byte(cnt)}

	bitBytes := (cnt + 7) / 8
	bits := make([]byte, bitBytes)
	for i, r := range reports {
		if !r.IsShort {
			bits[i/8] |= 1 << uint(i%8)
		}
	}
	out = append(out, bits...)

	for _, r := range reports {
		if r.IsShort {
			buf := make([]byte, 2)
			binary.LittleEndian.PutUint16(buf, uint16(r.Short))
			out = append(out, buf...)
		} else {
			out = append(out, r.Addr.WireBytes()...)
		}
		if withTime {
			out = append(out, EncodeTimestamp(r.RxTime)...)
		}
		if withInfo {
			for _, v := range r.RxInfo {
				buf := make([]byte, 2)
				binary.LittleEndian.PutUint16(buf, v)
				out = append(out, buf...)
			}
		}
	}
	return out
}

func (f Frame) encodeRangingResponse() ([]byte, error) {
	var subtype uint8
	if f.OWR {
		subtype |= 1 << 3
	}
	frame := byte(makebits(uint16(FrmRangingResp), 4, 4) | makebits(uint16(subtype), 0, 4))

	out := []byte{frame}
	out = append(out, EncodeTimestamp(f.TxTime)...)
	if f.OWR {
		return out, nil
	}
	out = append(out, encodeRxReports(f.RxTimes, true, false)...)
	return out, nil
}

func (f Frame) encodeAnchorAux() ([]byte, error) {
	var subtype uint8
	if f.Timing {
		subtype |= 1 << 3
	}
	if f.HasTxTime {
		subtype |= 1 << 2
	}
	hasRxTime := false
	hasRxInfo := false
	for _, r := range f.AuxRxReports {
		if r.HasTime {
			hasRxTime = true
		}
		if r.HasInfo {
			hasRxInfo = true
		}
	}
	if hasRxTime {
		subtype |= 1 << 1
	}
	if hasRxInfo {
		subtype |= 1 << 0
	}

	frame := byte(makebits(uint16(FrmAnchorAux), 4, 4) | makebits(uint16(subtype), 0, 4))
	out := []byte{frame}

	if f.HasTxTime {
		out = append(out, EncodeTimestamp(f.TxTime)...)
	}
	if hasRxTime || hasRxInfo {
		out = append(out, encodeRxReports(f.AuxRxReports, hasRxTime, hasRxInfo)...)
	}
	return out, nil
}

func (f Frame) encodeConfigRequest() ([]byte, error) {
	frame := byte(makebits(uint16(FrmConfigRequest), 4, 4) | makebits(uint16(f.ConfigSub), 0, 4))
	out := []byte{frame}

	switch f.ConfigSub {
	case ConfigReset:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, f.ResetMagic)
		out = append(out, buf...)
	case ConfigEnumerate:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, f.Iterator)
		out = append(out, buf...)
	case ConfigRead, ConfigDelete:
		out = append(out, encodeConfigKeys(f.ConfigKeys)...)
	case ConfigWrite:
		out = append(out, encodeConfigKV(f.ConfigValues)...)
	case ConfigSalt:
		out = append(out, padTo16(f.ConfigSalt)...)
	case ConfigTest:
		out = append(out, f.ConfigTest...)
	default:
		return nil, fmt.Errorf("tail: unknown config request subtype %d: %w", f.ConfigSub, rtlserr.ErrUnsupportedFrame)
	}
	return out, nil
}

func (f Frame) encodeConfigResponse() ([]byte, error) {
	frame := byte(makebits(uint16(FrmConfigResponse), 4, 4) | makebits(uint16(f.ConfigSub), 0, 4))
	out := []byte{frame}

	switch f.ConfigSub {
	case ConfigReset:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, f.ResetMagic)
		out = append(out, buf...)
	case ConfigEnumerate:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, f.Iterator)
		out = append(out, buf...)
		out = append(out, encodeConfigKeys(f.ConfigKeys)...)
	case ConfigRead:
		out = append(out, encodeConfigKV(f.ConfigValues)...)
	case ConfigWrite, ConfigDelete:
		out = append(out, f.RespCode)
	case ConfigSalt:
		out = append(out, padTo16(f.ConfigSalt)...)
	case ConfigTest:
		out = append(out, f.ConfigTest...)
	default:
		return nil, fmt.Errorf("tail: unknown config response subtype %d: %w", f.ConfigSub, rtlserr.ErrUnsupportedFrame)
	}
	return out, nil
}

func encodeConfigKeys(keys []uint16) []byte {
	out := []byte{byte(len(keys))}
	for _, k := range keys {
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, k)
		out = append(out, buf...)
	}
	return out
}

func encodeConfigKV(values map[uint16][]byte) []byte {
	out := []byte{byte(len(values))}
	for k, v := range values {
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, k)
		out = append(out, buf...)
		out = append(out, byte(len(v)))
		out = append(out, v...)
	}
	return out
}

func padTo16(b []byte) []byte {
	out := make([]byte, 16)
	copy(out, b)
	return out
}

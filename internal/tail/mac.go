// Package tail implements the wire codec for the 802.15.4 MAC header and the
// Tail payload family carried inside it (tag blinks, anchor beacons, ranging
// request/response, config request/response, anchor auxiliary reports).
package tail

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/rtlserr"
)

// AddrMode is the 2-bit 802.15.4 address-mode field.
type AddrMode uint8

const (
	AddrModeNone  AddrMode = 0
	_reservedMode AddrMode = 1
	AddrModeShort AddrMode = 2
	AddrModeEUI64 AddrMode = 3
)

// FrameType is the 3-bit 802.15.4 frame-type field.
type FrameType uint8

const (
	FrameTypeBeacon FrameType = 0
	FrameTypeData   FrameType = 1
	FrameTypeAck    FrameType = 2
	FrameTypeMAC    FrameType = 3
)

// MACHeader is the subset of the 802.15.4 header this codec understands.
// Security is not supported; a frame with the security bit set decodes to
// rtlserr.ErrUnsupportedFrame.
type MACHeader struct {
	FrameType   FrameType
	Pending     bool
	AckReq      bool
	PANIDComp   bool
	FrameVer    uint8
	SeqNum      uint8
	DstMode     AddrMode
	DstPAN      uint16
	DstAddr     eui64.Addr
	DstShort    eui64.Short
	SrcMode     AddrMode
	SrcPAN      uint16
	SrcAddr     eui64.Addr
	SrcShort    eui64.Short
}

func getbits(v uint16, pos, cnt uint) uint16 {
	return (v >> pos) & ((1 << cnt) - 1)
}

func makebits(v uint16, pos, cnt uint) uint16 {
	return (v & ((1 << cnt) - 1)) << pos
}

func testbit(v uint16, pos uint) bool {
	return v&(1<<pos) != 0
}

// DecodeMACHeader parses the fixed 802.15.4 header at the start of data and
// returns the header plus the number of bytes it consumed.
func DecodeMACHeader(data []byte) (MACHeader, int, error) {
	var h MACHeader
	if len(data) < 3 {
		return h, 0, fmt.Errorf("tail: short frame, need at least 3 bytes: %w", rtlserr.ErrParse)
	}
	fc := binary.LittleEndian.Uint16(data[0:2])
	h.SeqNum = data[2]
	ptr := 3

	h.FrameType = FrameType(getbits(fc, 0, 3))
	security := testbit(fc, 3)
	h.Pending = testbit(fc, 4)
	h.AckReq = testbit(fc, 5)
	h.PANIDComp = testbit(fc, 6)
	h.DstMode = AddrMode(getbits(fc, 10, 2))
	h.FrameVer = uint8(getbits(fc, 12, 2))
	h.SrcMode = AddrMode(getbits(fc, 14, 2))

	if security {
		return h, 0, fmt.Errorf("tail: security bit set: %w", rtlserr.ErrUnsupportedFrame)
	}

	if h.DstMode != AddrModeNone {
		if len(data) < ptr+2 {
			return h, 0, fmt.Errorf("tail: truncated dst pan: %w", rtlserr.ErrParse)
		}
		h.DstPAN = binary.LittleEndian.Uint16(data[ptr : ptr+2])
		ptr += 2
		switch h.DstMode {
		case AddrModeShort:
			if len(data) < ptr+2 {
				return h, 0, fmt.Errorf("tail: truncated dst short addr: %w", rtlserr.ErrParse)
			}
			s, err := eui64.ShortFromWireBytes(data[ptr : ptr+2])
			if err != nil {
				return h, 0, fmt.Errorf("tail: dst short addr: %w", err)
			}
			h.DstShort = s
			ptr += 2
		case AddrModeEUI64:
			if len(data) < ptr+8 {
				return h, 0, fmt.Errorf("tail: truncated dst eui64 addr: %w", rtlserr.ErrParse)
			}
			a, err := eui64.FromWireBytes(data[ptr : ptr+8])
			if err != nil {
				return h, 0, fmt.Errorf("tail: dst eui64 addr: %w", err)
			}
			h.DstAddr = a
			ptr += 8
		default:
			return h, 0, fmt.Errorf("tail: reserved dst addr mode: %w", rtlserr.ErrUnsupportedFrame)
		}
	}

	if h.SrcMode != AddrModeNone {
		if h.PANIDComp {
			h.SrcPAN = h.DstPAN
		} else {
			if len(data) < ptr+2 {
				return h, 0, fmt.Errorf("tail: truncated src pan: %w", rtlserr.ErrParse)
			}
			h.SrcPAN = binary.LittleEndian.Uint16(data[ptr : ptr+2])
			ptr += 2
		}
		switch h.SrcMode {
		case AddrModeShort:
			if len(data) < ptr+2 {
				return h, 0, fmt.Errorf("tail: truncated src short addr: %w", rtlserr.ErrParse)
			}
			s, err := eui64.ShortFromWireBytes(data[ptr : ptr+2])
			if err != nil {
				return h, 0, fmt.Errorf("tail: src short addr: %w", err)
			}
			h.SrcShort = s
			ptr += 2
		case AddrModeEUI64:
			if len(data) < ptr+8 {
				return h, 0, fmt.Errorf("tail: truncated src eui64 addr: %w", rtlserr.ErrParse)
			}
			a, err := eui64.FromWireBytes(data[ptr : ptr+8])
			if err != nil {
				return h, 0, fmt.Errorf("tail: src eui64 addr: %w", err)
			}
			h.SrcAddr = a
			ptr += 8
		default:
			return h, 0, fmt.Errorf("tail: reserved src addr mode: %w", rtlserr.ErrUnsupportedFrame)
		}
	}

	return h, ptr, nil
}

// EncodeMACHeader renders h in the wire format DecodeMACHeader understands.
func EncodeMACHeader(h MACHeader) []byte {
	var fc uint16
	fc |= uint16(h.FrameType) & 0x07
	if h.Pending {
		fc |= 1 << 4
	}
	if h.AckReq {
		fc |= 1 << 5
	}
	compress := h.PANIDComp && h.SrcPAN == h.DstPAN
	if compress {
		fc |= 1 << 6
	}
	fc |= makebits(uint16(h.DstMode), 10, 2)
	fc |= makebits(uint16(h.SrcMode), 14, 2)
	fc |= makebits(uint16(h.FrameVer), 12, 2)

	out := make([]byte, 3)
	binary.LittleEndian.PutUint16(out[0:2], fc)
	out[2] = h.SeqNum

	if h.DstMode != AddrModeNone {
		pan := make([]byte, 2)
		binary.LittleEndian.PutUint16(pan, h.DstPAN)
		out = append(out, pan...)
		switch h.DstMode {
		case AddrModeShort:
			out = append(out, eui64.ShortWireBytes(h.DstShort)...)
		case AddrModeEUI64:
			out = append(out, h.DstAddr.WireBytes()...)
		}
	}

	if h.SrcMode != AddrModeNone {
		if !compress {
			pan := make([]byte, 2)
			binary.LittleEndian.PutUint16(pan, h.SrcPAN)
			out = append(out, pan...)
		}
		switch h.SrcMode {
		case AddrModeShort:
			out = append(out, eui64.ShortWireBytes(h.SrcShort)...)
		case AddrModeEUI64:
			out = append(out, h.SrcAddr.WireBytes()...)
		}
	}

	return out
}

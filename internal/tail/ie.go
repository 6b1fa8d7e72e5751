package tail

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

// ieWidth classifies the value width of an information element from the top
// two bits of its id byte: 0 -> uint8, 1 -> uint16 LE, 2 -> uint32 LE, 3 ->
// length-prefixed byte string.
type ieWidth uint8

const (
	ieWidthU8 ieWidth = iota
	ieWidthU16
	ieWidthU32
	ieWidthBytes
)

func widthOf(id byte) ieWidth {
	return ieWidth(getbits(uint16(id), 6, 2))
}

// ieName maps well-known IE ids to their semantic field name. Ids not listed
// here are rendered as "IE%02X" in decoded output.
var ieName = map[byte]string{
	0x00: "Batt",
	0x01: "Vreg",
	0x02: "Temp",
	0x40: "Vbatt",
	0x80: "Blinks",
	0xff: "Debug",
}

// ieConv converts a raw IE value to its physical unit. Ids not listed here
// are passed through unconverted.
var ieConv = map[byte]func(uint32) float64{
	0x01: func(x uint32) float64 { return round3(float64(int8(uint8(x)))/173 + 3.300) },
	0x02: func(x uint32) float64 { return round2(float64(int8(uint8(x)))/1.14 + 23.0) },
	0x40: func(x uint32) float64 { return round3(float64(x) * 5 / 32768) },
}

func round3(v float64) float64 { return roundTo(v, 1000) }
func round2(v float64) float64 { return roundTo(v, 100) }

func roundTo(v float64, scale float64) float64 {
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}

// IETable holds decoded information elements, each keyed by its semantic
// name (or "IE%02X" for unrecognized ids) and holding either a converted
// physical value (float64), a raw integer (uint8/uint16/uint32), or a byte
// string.
type IETable map[string]any

// decodeIEs reads the IE count byte followed by that many id/value pairs
// starting at data[0] and returns the table plus bytes consumed.
func decodeIEs(data []byte) (IETable, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("tail: short IE count: %w", rtlserr.ErrParse)
	}
	count := int(data[0])
	ptr := 1
	table := make(IETable, count)

	for i := 0; i < count; i++ {
		if len(data) < ptr+1 {
			return nil, 0, fmt.Errorf("tail: short IE id: %w", rtlserr.ErrParse)
		}
		id := data[ptr]
		ptr++

		var raw uint32
		switch widthOf(id) {
		case ieWidthU8:
			if len(data) < ptr+1 {
				return nil, 0, fmt.Errorf("tail: short IE u8 value: %w", rtlserr.ErrParse)
			}
			raw = uint32(data[ptr])
			ptr++
		case ieWidthU16:
			if len(data) < ptr+2 {
				return nil, 0, fmt.Errorf("tail: short IE u16 value: %w", rtlserr.ErrParse)
			}
			raw = uint32(binary.LittleEndian.Uint16(data[ptr : ptr+2]))
			ptr += 2
		case ieWidthU32:
			if len(data) < ptr+4 {
				return nil, 0, fmt.Errorf("tail: short IE u32 value: %w", rtlserr.ErrParse)
			}
			raw = binary.LittleEndian.Uint32(data[ptr : ptr+4])
			ptr += 4
		case ieWidthBytes:
			if len(data) < ptr+1 {
				return nil, 0, fmt.Errorf("tail: short IE length byte: %w", rtlserr.ErrParse)
			}
			n := int(data[ptr])
			ptr++
			if len(data) < ptr+n {
				return nil, 0, fmt.Errorf("tail: short IE byte string: %w", rtlserr.ErrParse)
			}
			name := ieKeyName(id)
			val := make([]byte, n)
			copy(val, data[ptr:ptr+n])
			table[name] = val
			ptr += n
			continue
		}

		name := ieKeyName(id)
		if conv, ok := ieConv[id]; ok {
			table[name] = conv(raw)
			continue
		}
		switch widthOf(id) {
		case ieWidthU8:
			table[name] = uint8(raw)
		case ieWidthU16:
			table[name] = uint16(raw)
		default:
			table[name] = raw
		}
	}

	return table, ptr, nil
}

func ieKeyName(id byte) string {
	if n, ok := ieName[id]; ok {
		return n
	}
	return fmt.Sprintf("IE%02X", id)
}

// encodeIEs renders a table of raw id->value pairs (callers supply the raw
// integer the device would have reported, not the converted physical
// value) in the order the caller supplies them; ids are not sorted.
func encodeIEs(ids []byte, values []uint32) ([]byte, error) {
	if len(ids) != len(values) {
		return nil, fmt.Errorf("tail: mismatched IE id/value slices")
	}
	out := []byte{byte(len(ids))}
	for i, id := range ids {
		out = append(out, id)
		val := values[i]
		switch widthOf(id) {
		case ieWidthU8:
			out = append(out, byte(val))
		case ieWidthU16:
			buf := make([]byte, 2)
			binary.LittleEndian.PutUint16(buf, uint16(val))
			out = append(out, buf...)
		case ieWidthU32:
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, val)
			out = append(out, buf...)
		default:
			return nil, fmt.Errorf("tail: encodeIEs does not support length-prefixed ids: %w", rtlserr.ErrUnsupportedFrame)
		}
	}
	return out, nil
}

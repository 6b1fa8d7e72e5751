package rfmodel

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

// TimestampInfo is the per-reception diagnostics block a DW1000 anchor
// reports alongside a hardware timestamp, carried as the FINFO hex blob on
// TAIL/RF/... and over the anchor's serial FINFO: lines. Field order and
// width match the device's native little-endian struct layout.
type TimestampInfo struct {
	RawTS    uint64
	LQI      uint16
	SNR      uint16
	FPR      uint16
	Noise    uint16
	RxPACC   uint16
	FPIndex  uint16
	FPAmpl1  uint16
	FPAmpl2  uint16
	FPAmpl3  uint16
	CIRPwr   uint32
	FPPwr    uint32
	TTCKO    uint32
	TTCKI    uint32
	Temp     int16
	Volt     int16
}

// timestampInfoSize is the encoded length in bytes.
const timestampInfoSize = 8 + 2*9 + 4*4 + 2*2

// DecodeTimestampInfo parses a FINFO blob. Short input is zero-padded on
// the right, matching the device's own ljust-to-struct-size behavior.
func DecodeTimestampInfo(data []byte) (TimestampInfo, error) {
	var ti TimestampInfo
	buf := make([]byte, timestampInfoSize)
	if len(data) > timestampInfoSize {
		return ti, fmt.Errorf("tail: FINFO blob too long (%d > %d): %w", len(data), timestampInfoSize, rtlserr.ErrParse)
	}
	copy(buf, data)

	ti.RawTS = binary.LittleEndian.Uint64(buf[0:8])
	ti.LQI = binary.LittleEndian.Uint16(buf[8:10])
	ti.SNR = binary.LittleEndian.Uint16(buf[10:12])
	ti.FPR = binary.LittleEndian.Uint16(buf[12:14])
	ti.Noise = binary.LittleEndian.Uint16(buf[14:16])
	ti.RxPACC = binary.LittleEndian.Uint16(buf[16:18])
	ti.FPIndex = binary.LittleEndian.Uint16(buf[18:20])
	ti.FPAmpl1 = binary.LittleEndian.Uint16(buf[20:22])
	ti.FPAmpl2 = binary.LittleEndian.Uint16(buf[22:24])
	ti.FPAmpl3 = binary.LittleEndian.Uint16(buf[24:26])
	ti.CIRPwr = binary.LittleEndian.Uint32(buf[26:30])
	ti.FPPwr = binary.LittleEndian.Uint32(buf[30:34])
	ti.TTCKO = binary.LittleEndian.Uint32(buf[34:38])
	ti.TTCKI = binary.LittleEndian.Uint32(buf[38:42])
	ti.Temp = int16(binary.LittleEndian.Uint16(buf[42:44]))
	ti.Volt = int16(binary.LittleEndian.Uint16(buf[44:46]))

	return ti, nil
}

// Encode renders ti in its native little-endian wire form.
func (ti TimestampInfo) Encode() []byte {
	buf := make([]byte, timestampInfoSize)
	binary.LittleEndian.PutUint64(buf[0:8], ti.RawTS)
	binary.LittleEndian.PutUint16(buf[8:10], ti.LQI)
	binary.LittleEndian.PutUint16(buf[10:12], ti.SNR)
	binary.LittleEndian.PutUint16(buf[12:14], ti.FPR)
	binary.LittleEndian.PutUint16(buf[14:16], ti.Noise)
	binary.LittleEndian.PutUint16(buf[16:18], ti.RxPACC)
	binary.LittleEndian.PutUint16(buf[18:20], ti.FPIndex)
	binary.LittleEndian.PutUint16(buf[20:22], ti.FPAmpl1)
	binary.LittleEndian.PutUint16(buf[22:24], ti.FPAmpl2)
	binary.LittleEndian.PutUint16(buf[24:26], ti.FPAmpl3)
	binary.LittleEndian.PutUint32(buf[26:30], ti.CIRPwr)
	binary.LittleEndian.PutUint32(buf[30:34], ti.FPPwr)
	binary.LittleEndian.PutUint32(buf[34:38], ti.TTCKO)
	binary.LittleEndian.PutUint32(buf[38:42], ti.TTCKI)
	binary.LittleEndian.PutUint16(buf[42:44], uint16(ti.Temp))
	binary.LittleEndian.PutUint16(buf[44:46], uint16(ti.Volt))
	return buf
}

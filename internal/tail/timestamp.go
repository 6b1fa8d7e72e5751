package tail

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

// Timestamp is a 40-bit (5-byte) DW1000 timer reading, little-endian on the
// wire and left-padded into a uint64 in memory.
type Timestamp uint64

// DecodeTimestamp reads a 5-byte little-endian timestamp.
func DecodeTimestamp(data []byte) (Timestamp, error) {
	if len(data) < 5 {
		return 0, fmt.Errorf("tail: short timestamp: %w", rtlserr.ErrParse)
	}
	var buf [8]byte
	copy(buf[:5], data[:5])
	return Timestamp(binary.LittleEndian.Uint64(buf[:])), nil
}

// EncodeTimestamp renders t as its 5-byte little-endian wire form.
func EncodeTimestamp(t Timestamp) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(t))
	out := make([]byte, 5)
	copy(out, buf[:5])
	return out
}

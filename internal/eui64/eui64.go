// Package eui64 provides the 8-byte device identifier used as the primary
// key for anchors and tags throughout the system.
package eui64

import (
	"encoding/hex"
	"fmt"
)

// Addr is a canonical (big-endian, human-readable) EUI64 address. Index 0 is
// the most significant byte, matching conventional hex notation
// (0102030405060708 prints as "0102030405060708").
type Addr [8]byte

// Zero is the all-zero address, used as a sentinel for "no address".
var Zero Addr

// Parse decodes a canonical 16-hex-digit EUI64 string (optionally
// colon-separated, e.g. "01:02:03:04:05:06:07:08") into an Addr.
func Parse(s string) (Addr, error) {
	var a Addr
	clean := make([]byte, 0, 16)
	for i := 0; i < len(s); i++ {
		if s[i] == ':' || s[i] == '-' {
			continue
		}
		clean = append(clean, s[i])
	}
	if len(clean) != 16 {
		return a, fmt.Errorf("eui64: %q is not a 16-hex-digit address", s)
	}
	b, err := hex.DecodeString(string(clean))
	if err != nil {
		return a, fmt.Errorf("eui64: %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// String renders the address in canonical hex form.
func (a Addr) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Addr) IsZero() bool {
	return a == Zero
}

// Bytes returns the canonical byte-order representation.
func (a Addr) Bytes() []byte {
	b := make([]byte, 8)
	copy(b, a[:])
	return b
}

// FromBytes builds an Addr from a canonical-order 8-byte slice.
func FromBytes(b []byte) (Addr, error) {
	var a Addr
	if len(b) != 8 {
		return a, fmt.Errorf("eui64: need 8 bytes, got %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// WireBytes returns the little-endian (byte-reversed) form used on the wire
// for 802.15.4 extended addresses.
func (a Addr) WireBytes() []byte {
	b := make([]byte, 8)
	for i := range a {
		b[i] = a[7-i]
	}
	return b
}

// FromWireBytes parses a little-endian (byte-reversed) 8-byte wire address
// into its canonical Addr form.
func FromWireBytes(b []byte) (Addr, error) {
	var a Addr
	if len(b) != 8 {
		return a, fmt.Errorf("eui64: need 8 bytes, got %d", len(b))
	}
	for i := range a {
		a[i] = b[7-i]
	}
	return a, nil
}

// Short is a 16-bit 802.15.4 short address.
type Short uint16

// ShortWireBytes returns the little-endian wire form of a short address.
func ShortWireBytes(s Short) []byte {
	return []byte{byte(s), byte(s >> 8)}
}

// ShortFromWireBytes parses a little-endian 2-byte short address.
func ShortFromWireBytes(b []byte) (Short, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("eui64: short address needs 2 bytes, got %d", len(b))
	}
	return Short(b[0]) | Short(b[1])<<8, nil
}

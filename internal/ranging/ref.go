// Package ranging implements the per-blink correlation state machine:
// anchor and tag device handles, the ranging-reference keyed session
// registry, the three-phase event collector, and the per-anchor health
// supervisor.
package ranging

import (
	"crypto/md5"

	"github.com/banshee-data/rtls/internal/eui64"
)

// Ref is the 8-byte ranging-reference key used to correlate per-anchor
// observations of the same blink across the session registry.
type Ref [8]byte

// String renders ref in hex for logging.
func (r Ref) String() string {
	const hexd = "0123456789abcdef"
	buf := make([]byte, 16)
	for i, b := range r {
		buf[i*2] = hexd[b>>4]
		buf[i*2+1] = hexd[b&0xf]
	}
	return string(buf)
}

// MakeRef computes the ranging-reference for a tag address and sequence
// number: the first 8 bytes of MD5(addr || seq&0xff). addr is hashed in
// its canonical (big-endian) byte order, matching the original
// implementation's struct.pack("8sB", addr, seq) over the raw EUI64
// bytes it already held in wire order internally; this codec's Addr type
// is canonical, so Bytes() supplies the same 8 bytes hashed there.
func MakeRef(addr eui64.Addr, seq uint8) Ref {
	sum := md5.Sum(append(addr.Bytes(), seq&0xff))
	var ref Ref
	copy(ref[:], sum[:8])
	return ref
}

package ranging

import (
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtls/internal/eui64"
)

func TestMakeRefMatchesMD5Prefix(t *testing.T) {
	addr, err := eui64.Parse("0011223344556677")
	require.NoError(t, err)

	got := MakeRef(addr, 0x2a)

	sum := md5.Sum(append(addr.Bytes(), 0x2a))
	var want Ref
	copy(want[:], sum[:8])

	assert.Equal(t, want, got)
}

func TestMakeRefDeterministicAndSeqSensitive(t *testing.T) {
	addr, err := eui64.Parse("0011223344556677")
	require.NoError(t, err)

	assert.Equal(t, MakeRef(addr, 0), MakeRef(addr, 0))
	assert.NotEqual(t, MakeRef(addr, 1), MakeRef(addr, 2))
}

func TestRefString(t *testing.T) {
	var r Ref
	copy(r[:], []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x11, 0x22, 0x33})
	assert.Equal(t, "deadbeef00112233", r.String())
}

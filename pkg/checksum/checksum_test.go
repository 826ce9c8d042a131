package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumSha256(t *testing.T) {
	sum, err := Sum(Sha256, []byte("hello"))
	require.NoError(t, err)
	assert.Len(t, sum, 32)
}

func TestSumCrc32LittleEndian(t *testing.T) {
	sum, err := Sum(Crc32, []byte("123456789"))
	require.NoError(t, err)
	require.Len(t, sum, 4)
	// IEEE CRC-32 of "123456789" is 0xCBF43926; verify little-endian storage.
	assert.Equal(t, []byte{0x26, 0x39, 0xf4, 0xcb}, sum)
}

func TestEqual(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{1, 2, 3}
	c := []byte{1, 2, 4}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, []byte{1, 2}))
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("sha256")
	require.NoError(t, err)
	assert.Equal(t, Sha256, typ)

	_, err = ParseType("bogus")
	assert.Error(t, err)
}

func TestDigestString(t *testing.T) {
	sum, err := Sum(Sha256, []byte("hello"))
	require.NoError(t, err)
	s := Digest(Sha256, sum)
	assert.Contains(t, s, "sha256:")
}

func TestHasherUpdateIncremental(t *testing.T) {
	h, err := New(Sha256)
	require.NoError(t, err)
	h.Update([]byte("hel"))
	h.Update([]byte("lo"))

	whole, err := Sum(Sha256, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, whole, h.Finalize())
}

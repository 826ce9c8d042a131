package fixedstring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndString(t *testing.T) {
	fs, err := New("rootfs")
	require.NoError(t, err)
	assert.Equal(t, "rootfs", fs.String())
	assert.True(t, fs.Equal("rootfs"))
	assert.False(t, fs.Equal("rootfs2"))
}

func TestNewTooLong(t *testing.T) {
	_, err := New(strings.Repeat("x", Size+1))
	assert.Error(t, err)
}

func TestFullyUsedSlotNoNUL(t *testing.T) {
	full := strings.Repeat("a", Size)
	fs, err := New(full)
	require.NoError(t, err)
	assert.Equal(t, full, fs.String())
}

func TestFromBytesRoundTrip(t *testing.T) {
	fs, err := New("mmcblk0p6")
	require.NoError(t, err)

	fs2, err := FromBytes(fs.Bytes())
	require.NoError(t, err)
	assert.Equal(t, fs, fs2)
}

func TestFromBytesWrongSize(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

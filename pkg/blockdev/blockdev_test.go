package blockdev

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureNotMountedOnUnknownDevice(t *testing.T) {
	// A device path that cannot appear in /proc/self/mountinfo's Source
	// column must be reported as not mounted.
	err := EnsureNotMounted("/dev/rupdate-test-nonexistent-device")
	assert.NoError(t, err)
}

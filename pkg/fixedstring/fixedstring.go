// Package fixedstring implements the 36-byte NUL-padded ASCII string field
// shared by PartitionConfig and UpdateState, matching the wire layout of
// the Rust FixedString<36> it is grounded on.
package fixedstring

import (
	"bytes"
	"fmt"
)

// Size is the fixed on-wire width of a FixedString field, in bytes.
const Size = 36

// FixedString is a NUL-padded, fixed-width ASCII string. The zero value is
// an all-zero (empty) string.
type FixedString [Size]byte

// New builds a FixedString from s, which must fit within Size bytes
// (not counting a terminator; the encoder does not require one).
func New(s string) (FixedString, error) {
	var fs FixedString
	if len(s) > Size {
		return fs, fmt.Errorf("fixedstring: %q exceeds %d bytes", s, Size)
	}
	copy(fs[:], s)
	return fs, nil
}

// String returns the logical value: the prefix up to the first NUL, or the
// full field if it is entirely used (no NUL present).
func (fs FixedString) String() string {
	if i := bytes.IndexByte(fs[:], 0); i >= 0 {
		return string(fs[:i])
	}
	return string(fs[:])
}

// Equal compares the logical (NUL-trimmed) value against s.
func (fs FixedString) Equal(s string) bool {
	return fs.String() == s
}

// Bytes returns the raw 36-byte on-wire representation.
func (fs FixedString) Bytes() []byte {
	return fs[:]
}

// FromBytes copies a raw 36-byte slice into a FixedString.
func FromBytes(b []byte) (FixedString, error) {
	var fs FixedString
	if len(b) != Size {
		return fs, fmt.Errorf("fixedstring: expected %d bytes, got %d", Size, len(b))
	}
	copy(fs[:], b)
	return fs, nil
}

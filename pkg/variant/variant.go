// Package variant implements the A/B partition variant selector, grounded
// on the Rust Variant enum: binary form is a single byte (0=A, 1=B), human
// form accepts "A"/"a"/"B"/"b".
package variant

import (
	"fmt"
	"strings"
)

// Variant selects one member (A or B) of a partition set.
type Variant uint8

const (
	A Variant = 0
	B Variant = 1
)

// FromByte decodes the binary (bincode-style) representation.
func FromByte(b byte) (Variant, error) {
	switch b {
	case 0x00:
		return A, nil
	case 0x01:
		return B, nil
	default:
		return 0, fmt.Errorf("variant: invalid byte 0x%02x", b)
	}
}

// Byte returns the binary representation.
func (v Variant) Byte() byte { return byte(v) }

// Opposite returns the other variant (A<->B), used by every swap in the
// state machine's boot-driven and commit-driven transitions.
func (v Variant) Opposite() Variant {
	if v == A {
		return B
	}
	return A
}

func (v Variant) String() string {
	if v == A {
		return "A"
	}
	return "B"
}

// Parse accepts the human-readable forms "A", "a", "B", "b".
func Parse(s string) (Variant, error) {
	switch strings.ToUpper(s) {
	case "A":
		return A, nil
	case "B":
		return B, nil
	default:
		return 0, fmt.Errorf("variant: invalid variant %q", s)
	}
}

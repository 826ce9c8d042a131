package updateenv

import (
	"fmt"

	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// State is the update lifecycle state, grounded on the Rust State enum in
// core::state (Normal, Installed, Committed, Testing, Revert), encoded as a
// single byte on the wire.
type State uint8

const (
	Normal State = iota
	Installed
	Committed
	Testing
	Revert
)

func (s State) String() string {
	switch s {
	case Normal:
		return "Normal"
	case Installed:
		return "Installed"
	case Committed:
		return "Committed"
	case Testing:
		return "Testing"
	case Revert:
		return "Revert"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// StateFromByte decodes the on-wire discriminant, rejecting unknown values
// per spec §4.1's "unknown discriminants fail with MalformedEncoding".
func StateFromByte(b uint8) (State, error) {
	if b > uint8(Revert) {
		return 0, rerror.Newf(rerror.MalformedEncoding, "invalid state discriminant %d", b)
	}
	return State(b), nil
}

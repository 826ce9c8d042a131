// Package bootseq is the reference bootloader implementation spec §1
// calls for: it drives the boot-time transitions of pkg/statemachine
// against the same pkg/updateenv encoding userspace writes, so tests can
// prove both sides of the shared on-disk format agree. A real bootloader's
// environmental wiring (MMC access, kernel handoff) is out of scope; this
// package only performs the state read/advance/write cycle.
package bootseq

import (
	"github.com/Elektrobit/rupdate/pkg/rlog"
	"github.com/Elektrobit/rupdate/pkg/statemachine"
	"github.com/Elektrobit/rupdate/pkg/updateenv"
)

// Boot performs exactly one boot-time read-advance-write cycle: read the
// current UpdateState, apply the one boot transition the state machine
// prescribes, and persist the result (even when the transition is a
// no-op, matching the "boot transitions" table's explicit no-change rows
// for Normal and Installed, which still constitute a read-modify-write per
// SPEC_FULL.md §4.4's discipline).
func Boot(env *updateenv.Environment) (*updateenv.UpdateState, error) {
	current, err := env.GetCurrentState()
	if err != nil {
		return nil, err
	}

	rlog.Debugf("boot: advancing from state %s (remaining_tries=%d)", current.State, current.RemainingTries)

	next, err := statemachine.BootAdvance(current)
	if err != nil {
		return nil, err
	}

	if err := env.WriteNextState(next); err != nil {
		return nil, err
	}

	rlog.Debugf("boot: now in state %s", next.State)
	return next, nil
}

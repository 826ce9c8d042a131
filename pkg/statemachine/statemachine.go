// Package statemachine implements the legal transitions of the update
// lifecycle from spec §4.5: the userspace-driven commands (update, commit,
// finish, revert, rollback) and the boot-driven transitions a reference
// bootloader performs against the same on-disk encoding.
//
// Every function here is pure: it takes a *updateenv.UpdateState and
// returns a new one (via Clone), leaving the caller responsible for the
// single read-modify-write cycle UpdateEnv requires per spec §4.4.
package statemachine

import (
	"github.com/Elektrobit/rupdate/pkg/rerror"
	"github.com/Elektrobit/rupdate/pkg/updateenv"
)

// DefaultBootRetries is the number of boot attempts `commit` grants absent
// an explicit -r flag, per spec §6.1.
const DefaultBootRetries = 3

// Update applies the effect of a successful install: every set in
// affectedSets is marked affected, with rollback eligibility taken from the
// bundle's rollback_allowed flag. Legal from Normal or Installed.
func Update(current *updateenv.UpdateState, affectedSets []string, rollbackAllowed bool) (*updateenv.UpdateState, error) {
	if current.State != updateenv.Normal && current.State != updateenv.Installed {
		return nil, rerror.Newf(rerror.InvalidStateTransition, "cannot update from state %s", current.State)
	}

	next := current.Clone()
	for _, name := range affectedSets {
		sel, err := next.Selection(name)
		if err != nil {
			return nil, err
		}
		sel.Affected = true
		sel.Rollback = rollbackAllowed
	}
	next.RemainingTries = -1
	next.State = updateenv.Installed
	return next, nil
}

// Commit marks a previously installed update ready to be tested, granting
// bootRetries boot attempts before automatic revert. Legal only from
// Installed; per spec §9's Open Question resolution a second commit on an
// already-Committed state is InvalidStateTransition.
func Commit(current *updateenv.UpdateState, bootRetries int16) (*updateenv.UpdateState, error) {
	if current.State != updateenv.Installed {
		return nil, rerror.Newf(rerror.InvalidStateTransition, "cannot commit from state %s", current.State)
	}
	if bootRetries < 1 {
		return nil, rerror.Newf(rerror.InvalidStateTransition, "invalid number of boot retries: %d", bootRetries)
	}

	next := current.Clone()
	next.State = updateenv.Committed
	next.RemainingTries = bootRetries
	return next, nil
}

// Finish completes an update by clearing the affected flag on every set
// that participated, leaving rollback eligibility untouched so a later
// `rollback` can still use it. Legal only from Testing.
func Finish(current *updateenv.UpdateState) (*updateenv.UpdateState, error) {
	if current.State != updateenv.Testing {
		return nil, rerror.Newf(rerror.InvalidStateTransition, "cannot finish from state %s", current.State)
	}

	next := current.Clone()
	clean(next, true)
	return next, nil
}

// Revert marks an in-progress or uncompleted update for reversion.
//
//   - From Installed or Committed (no boot-time swap has happened yet),
//     the effect is immediate: affected and rollback are cleared and the
//     state returns directly to Normal.
//   - From Testing (the swap already happened at boot), userspace can only
//     request the revert; the bootloader performs the actual swap-back on
//     the next boot, so the state becomes Revert with remaining_tries
//     cleared to force that path.
//   - Illegal from Normal (nothing to revert) and from Revert itself
//     (already in progress).
func Revert(current *updateenv.UpdateState) (*updateenv.UpdateState, error) {
	next := current.Clone()
	switch current.State {
	case updateenv.Normal:
		return nil, rerror.New(rerror.InvalidStateTransition, "no update in progress")
	case updateenv.Installed, updateenv.Committed:
		clean(next, false)
	case updateenv.Testing:
		next.State = updateenv.Revert
		next.RemainingTries = 0
	case updateenv.Revert:
		return nil, rerror.New(rerror.InvalidStateTransition, "already reverting, revert not possible")
	default:
		return nil, rerror.Newf(rerror.InvalidStateTransition, "cannot revert from state %s", current.State)
	}
	return next, nil
}

// Rollback swaps every rollback-eligible set back to its previous variant
// and clears rollback eligibility on all sets. Legal only from Normal, and
// only if at least one set is rollback-eligible.
func Rollback(current *updateenv.UpdateState) (*updateenv.UpdateState, error) {
	switch current.State {
	case updateenv.Normal:
		// proceed
	case updateenv.Revert:
		return nil, rerror.New(rerror.InvalidStateTransition, "already reverting to an older system, please reboot")
	default:
		return nil, rerror.New(rerror.InvalidStateTransition, "rollback not possible during an ongoing update, use revert")
	}

	next := current.Clone()
	rolledBack := false
	for i := range next.PartSel {
		if next.PartSel[i].Rollback {
			rolledBack = true
			next.PartSel[i].Active = next.PartSel[i].Active.Opposite()
		}
	}
	for i := range next.PartSel {
		next.PartSel[i].Rollback = false
	}

	if !rolledBack {
		return nil, rerror.New(rerror.Generic, "no system to roll back to or rollback not allowed")
	}
	return next, nil
}

// BootAdvance applies exactly one boot-time transition, per the boot
// transition table of spec §4.5. It is the core of pkg/bootseq, and is
// exported here so both the reference bootloader simulator and its tests
// exercise the identical logic userspace's commands do.
func BootAdvance(current *updateenv.UpdateState) (*updateenv.UpdateState, error) {
	next := current.Clone()
	switch current.State {
	case updateenv.Normal, updateenv.Installed:
		// Boot the active variants unchanged; no state transition.
		return next, nil
	case updateenv.Committed:
		for i := range next.PartSel {
			if next.PartSel[i].Affected {
				next.PartSel[i].Active = next.PartSel[i].Active.Opposite()
			}
		}
		next.State = updateenv.Testing
		return next, nil
	case updateenv.Testing:
		// Per the boot transition table this decrements then reverts as
		// soon as the result is <= 0. Scenario 3's prose reads as one
		// extra boot before revert; the table is normative, so this
		// follows the table.
		next.RemainingTries--
		if next.RemainingTries <= 0 {
			revertActive(next)
			return next, nil
		}
		return next, nil
	case updateenv.Revert:
		revertActive(next)
		return next, nil
	default:
		return nil, rerror.Newf(rerror.InvalidStateTransition, "unknown boot state %s", current.State)
	}
}

// revertActive swaps every affected set back to its pre-update variant and
// returns the state to Normal, used by both the Testing-exhausted-retries
// path and the explicit Revert state.
func revertActive(s *updateenv.UpdateState) {
	for i := range s.PartSel {
		if s.PartSel[i].Affected {
			s.PartSel[i].Active = s.PartSel[i].Active.Opposite()
			s.PartSel[i].Affected = false
			s.PartSel[i].Rollback = false
		}
	}
	s.RemainingTries = -1
	s.State = updateenv.Normal
}

// clean resets every affected set's bookkeeping and returns the state to
// Normal. finalize distinguishes a successful `finish` (rollback
// eligibility survives for a later `rollback`) from a pre-swap `revert`
// (nothing succeeded, so rollback eligibility is cleared too).
func clean(s *updateenv.UpdateState, finalize bool) {
	for i := range s.PartSel {
		if s.PartSel[i].Affected {
			s.PartSel[i].Affected = false
			if !finalize {
				s.PartSel[i].Rollback = false
			}
		}
	}
	s.RemainingTries = -1
	s.State = updateenv.Normal
}

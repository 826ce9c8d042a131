package updateenv

import (
	"bytes"

	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// Storage is the raw, fixed-offset byte region backing both slots — a
// block device or, in tests, an in-memory buffer. Sized reads/writes at
// fixed offsets rather than Read+Write+Seek keep slot access side-effect
// free with respect to any shared cursor.
type Storage interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
}

// Environment manages the two redundant UpdateState slots on a Storage.
type Environment struct {
	storage   Storage
	offsets   [NumSlots]int64
	slotSize  int64
}

// NewEnvironment wraps storage, with slot i living at offsets[i] and
// occupying up to slotSize bytes — slotSize must be large enough to hold
// the largest UpdateState this deployment will ever persist (bounded by
// the number of updateable partition sets).
func NewEnvironment(storage Storage, offsets [NumSlots]int64, slotSize int64) *Environment {
	return &Environment{storage: storage, offsets: offsets, slotSize: slotSize}
}

type slotResult struct {
	state *UpdateState
	err   error
}

func (e *Environment) readSlot(idx int) slotResult {
	buf := make([]byte, e.slotSize)
	if _, err := e.storage.ReadAt(buf, e.offsets[idx]); err != nil {
		return slotResult{err: rerror.Wrap(rerror.IoError, err, "reading update state slot")}
	}
	state, err := Decode(buf)
	return slotResult{state: state, err: err}
}

// currentSlot implements the read protocol of SPEC_FULL.md §4.4: classify
// each slot Valid/Invalid, then pick the higher-revision valid one, slot 0
// winning ties. It returns the winning slot index alongside the state so
// WriteNextState knows which slot to leave untouched.
func (e *Environment) currentSlot() (int, *UpdateState, error) {
	results := make([]slotResult, NumSlots)
	for i := 0; i < NumSlots; i++ {
		results[i] = e.readSlot(i)
	}

	best := -1
	for i, r := range results {
		if r.err != nil {
			continue
		}
		if best == -1 || r.state.Revision > results[best].state.Revision {
			best = i
		}
	}

	if best == -1 {
		return -1, nil, rerror.New(rerror.NoValidState, "no valid update state slot")
	}
	return best, results[best].state, nil
}

// GetCurrentState returns the authoritative UpdateState: the higher
// revision of the two slots, slot 0 winning ties, failing with
// NoValidState only if both slots are unreadable.
func (e *Environment) GetCurrentState() (*UpdateState, error) {
	_, state, err := e.currentSlot()
	return state, err
}

// WriteNextState persists newState to the slot that did not win the most
// recent read, bumping its revision to one past the current winner's, and
// never touching the winning slot — the "atomic replace" protocol of
// SPEC_FULL.md §4.4 that makes a torn write corrupt only the stale copy.
func (e *Environment) WriteNextState(newState *UpdateState) error {
	winnerIdx, winner, err := e.currentSlot()
	if err != nil {
		return err
	}

	target := 1 - winnerIdx
	newState.Revision = winner.Revision + 1
	if newState.Version == 0 {
		newState.Version = CurrentVersion
	}

	var buf bytes.Buffer
	if err := newState.Encode(&buf); err != nil {
		return err
	}

	if int64(buf.Len()) > e.slotSize {
		return rerror.Newf(rerror.IoError, "encoded update state (%d bytes) exceeds slot size %d", buf.Len(), e.slotSize)
	}

	if _, err := e.storage.WriteAt(buf.Bytes(), e.offsets[target]); err != nil {
		return rerror.Wrap(rerror.IoError, err, "writing update state slot")
	}
	return nil
}

// Initialize seeds slot 0 with state at revision 0 and leaves slot 1
// untouched (invalid), establishing the first valid state for a freshly
// provisioned device. It is the Go-native equivalent of the Rust
// Environment::new constructor.
func (e *Environment) Initialize(state *UpdateState) error {
	state.Revision = 0
	if state.Version == 0 {
		state.Version = CurrentVersion
	}

	var buf bytes.Buffer
	if err := state.Encode(&buf); err != nil {
		return err
	}
	if int64(buf.Len()) > e.slotSize {
		return rerror.Newf(rerror.IoError, "encoded update state (%d bytes) exceeds slot size %d", buf.Len(), e.slotSize)
	}
	if _, err := e.storage.WriteAt(buf.Bytes(), e.offsets[0]); err != nil {
		return rerror.Wrap(rerror.IoError, err, "initializing update state slot 0")
	}
	return nil
}

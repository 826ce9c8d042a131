// Package updateenv implements the two-slot persisted UpdateState ring:
// revision-based latest-writer-wins, integrity-verified reads, and atomic
// write-via-other-slot, grounded on the Rust core::env::Environment type.
package updateenv

import (
	"bytes"
	"io"

	"github.com/Elektrobit/rupdate/pkg/checksum"
	"github.com/Elektrobit/rupdate/pkg/codec"
	"github.com/Elektrobit/rupdate/pkg/fixedstring"
	"github.com/Elektrobit/rupdate/pkg/rerror"
	"github.com/Elektrobit/rupdate/pkg/variant"
)

// Magic identifies an UpdateState slot on disk.
var Magic = []byte("EBUS")

// CurrentVersion is the version this implementation writes. Readers accept
// any version <= CurrentVersion, per SPEC_FULL.md §9.
const CurrentVersion uint32 = 1

// NumSlots is the number of redundant copies of UpdateState persisted.
const NumSlots = 2

// PartitionSelection records the per-set bookkeeping an update touches.
type PartitionSelection struct {
	Name     fixedstring.FixedString
	Active   variant.Variant
	Rollback bool
	Affected bool
}

// UpdateState is one persisted (or in-flight, in-memory) snapshot of the
// update lifecycle.
type UpdateState struct {
	Version       uint32
	HashAlgorithm checksum.Type
	Revision      uint32
	RemainingTries int16
	State         State
	PartSel       []PartitionSelection
}

// Clone returns a deep copy, so callers can build the next state from the
// current one without aliasing its PartSel slice — every state-machine
// transition in pkg/statemachine starts from a Clone.
func (s *UpdateState) Clone() *UpdateState {
	clone := *s
	clone.PartSel = make([]PartitionSelection, len(s.PartSel))
	copy(clone.PartSel, s.PartSel)
	return &clone
}

// Selection returns a pointer to the PartitionSelection named name, or
// NotFound if no such selection exists (invariant I1: every partsel name is
// a known updateable set).
func (s *UpdateState) Selection(name string) (*PartitionSelection, error) {
	for i := range s.PartSel {
		if s.PartSel[i].Name.Equal(name) {
			return &s.PartSel[i], nil
		}
	}
	return nil, rerror.Newf(rerror.NotFound, "no partition selection for set %q", name)
}

// encodeStructural writes the structural fields (everything but the trailing
// hashsum) into buf and returns it, for both Encode and the hash
// computation to share.
func (s *UpdateState) encodeStructural() ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf)
	enc.WriteRaw(Magic)
	enc.WriteU32(CurrentVersion)
	enc.WriteU32(s.Revision)
	enc.WriteI16(s.RemainingTries)
	enc.WriteU8(uint8(s.State))
	enc.WriteSequenceLen(uint64(len(s.PartSel)))
	for _, p := range s.PartSel {
		enc.WriteFixedString(p.Name)
		enc.WriteU8(p.Active.Byte())
		enc.WriteBool(p.Rollback)
		enc.WriteBool(p.Affected)
	}
	if enc.Err() != nil {
		return nil, rerror.Wrap(rerror.IoError, enc.Err(), "encoding update state")
	}
	return buf.Bytes(), nil
}

// Encode writes the full on-wire form (structural prefix + hashsum_type +
// hashsum) to w.
func (s *UpdateState) Encode(w io.Writer) error {
	structural, err := s.encodeStructural()
	if err != nil {
		return err
	}

	algo := s.HashAlgorithm
	sum, err := checksum.Sum(algo, structural)
	if err != nil {
		return rerror.Wrap(rerror.MalformedEncoding, err, "hashing update state")
	}

	if _, err := w.Write(structural); err != nil {
		return rerror.Wrap(rerror.IoError, err, "writing update state")
	}
	trailer := codec.NewEncoder(w)
	trailer.WriteU32(uint32(algo))
	trailer.WriteRaw(sum)
	if trailer.Err() != nil {
		return rerror.Wrap(rerror.IoError, trailer.Err(), "writing update state trailer")
	}
	return nil
}

// Decode reads one self-contained UpdateState blob from a fixed-size slot
// buffer. It is decode-only: callers that need the raw/valid distinction
// for slot classification call this and inspect the error Kind.
func Decode(raw []byte) (*UpdateState, error) {
	br := bytes.NewReader(raw)
	dec := codec.NewDecoder(br)
	dec.ReadMagic(Magic)
	if dec.Err() != nil {
		return nil, dec.Err()
	}

	version := dec.ReadU32()
	revision := dec.ReadU32()
	remainingTries := dec.ReadI16()
	stateByte := dec.ReadU8()

	partCount := dec.ReadSequenceLen()
	// A corrupted slot can decode a wild sequence length; cap it against
	// what the buffer could possibly contain so a torn write fails fast
	// with MalformedEncoding instead of an out-of-memory allocation.
	if partCount > uint64(len(raw)) {
		return nil, rerror.Newf(rerror.MalformedEncoding, "implausible partition selection count %d", partCount)
	}
	partsel := make([]PartitionSelection, 0, partCount)
	for i := uint64(0); i < partCount; i++ {
		name := dec.ReadFixedString()
		activeByte := dec.ReadU8()
		rollback := dec.ReadBool()
		affected := dec.ReadBool()
		if dec.Err() != nil {
			return nil, dec.Err()
		}
		active, verr := variant.FromByte(activeByte)
		if verr != nil {
			return nil, rerror.Wrap(rerror.MalformedEncoding, verr, "decoding partition selection variant")
		}
		partsel = append(partsel, PartitionSelection{
			Name:     name,
			Active:   active,
			Rollback: rollback,
			Affected: affected,
		})
	}

	structuralLen := len(raw) - br.Len()
	hashsumType := checksum.Type(dec.ReadU32())
	hashsum := dec.ReadRaw(hashsumType.Size())
	if dec.Err() != nil {
		return nil, dec.Err()
	}

	state, err := StateFromByte(stateByte)
	if err != nil {
		return nil, err
	}
	if version > CurrentVersion {
		return nil, rerror.Newf(rerror.UnsupportedVersion, "update state version %d unsupported", version)
	}

	want, err := checksum.Sum(hashsumType, raw[:structuralLen])
	if err != nil {
		return nil, rerror.Wrap(rerror.MalformedEncoding, err, "hashing update state")
	}
	if !checksum.Equal(want, hashsum) {
		return nil, rerror.New(rerror.ChecksumMismatch, "update state checksum mismatch")
	}

	return &UpdateState{
		Version:        version,
		HashAlgorithm:  hashsumType,
		Revision:       revision,
		RemainingTries: remainingTries,
		State:          state,
		PartSel:        partsel,
	}, nil
}

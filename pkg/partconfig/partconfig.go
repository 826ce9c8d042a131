// Package partconfig implements the static, read-mostly PartitionConfig
// blob (magic "EBPC") jointly consumed by userspace and the bootloader,
// grounded on the Rust core::part_env module's PartitionEnvironment.
package partconfig

import (
	"bytes"
	"io"

	"github.com/Elektrobit/rupdate/pkg/checksum"
	"github.com/Elektrobit/rupdate/pkg/codec"
	"github.com/Elektrobit/rupdate/pkg/fixedstring"
	"github.com/Elektrobit/rupdate/pkg/rerror"
	"github.com/Elektrobit/rupdate/pkg/variant"
)

// Magic identifies a PartitionConfig blob on disk.
var Magic = []byte("EBPC")

// CurrentVersion is the version this implementation writes. Readers accept
// any version <= CurrentVersion, per SPEC_FULL.md §9's resolution of the
// version-field Open Question.
const CurrentVersion uint32 = 1

// SetDescriptor names a partition set and its identifier.
type SetDescriptor struct {
	ID   uint8
	Name fixedstring.FixedString
}

// PartitionDescriptor describes one physical partition participating in a
// set, with both the bootloader-facing and Linux-facing device identities.
type PartitionDescriptor struct {
	Variant        variant.Variant
	SetID          uint8
	BootDevice     fixedstring.FixedString
	BootPartition  fixedstring.FixedString
	LinuxDevice    fixedstring.FixedString
	LinuxPartition fixedstring.FixedString
}

// PartitionConfig is the decoded, static partition layout.
type PartitionConfig struct {
	Version       uint32
	HashAlgorithm checksum.Type
	Sets          []SetDescriptor
	Partitions    []PartitionDescriptor
}

// Load decodes and integrity-verifies a PartitionConfig blob.
func Load(r io.Reader) (*PartitionConfig, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, rerror.Wrap(rerror.IoError, err, "reading partition config")
	}

	br := bytes.NewReader(raw)
	dec := codec.NewDecoder(br)
	dec.ReadMagic(Magic)
	if dec.Err() != nil {
		return nil, dec.Err()
	}

	version := dec.ReadU32()
	hashAlg := checksum.Type(dec.ReadU32())

	setCount := dec.ReadSequenceLen()
	sets := make([]SetDescriptor, 0, setCount)
	for i := uint64(0); i < setCount; i++ {
		sets = append(sets, SetDescriptor{ID: dec.ReadU8(), Name: dec.ReadFixedString()})
	}

	partCount := dec.ReadSequenceLen()
	parts := make([]PartitionDescriptor, 0, partCount)
	for i := uint64(0); i < partCount; i++ {
		v, verr := variant.FromByte(dec.ReadU8())
		pd := PartitionDescriptor{
			Variant:        v,
			SetID:          dec.ReadU8(),
			BootDevice:     dec.ReadFixedString(),
			BootPartition:  dec.ReadFixedString(),
			LinuxDevice:    dec.ReadFixedString(),
			LinuxPartition: dec.ReadFixedString(),
		}
		if verr != nil && dec.Err() == nil {
			return nil, rerror.Wrap(rerror.MalformedEncoding, verr, "decoding partition variant")
		}
		parts = append(parts, pd)
	}

	structuralLen := len(raw) - br.Len()
	hashsumType := checksum.Type(dec.ReadU32())
	hashsum := dec.ReadRaw(hashsumType.Size())
	if dec.Err() != nil {
		return nil, dec.Err()
	}

	if version > CurrentVersion {
		return nil, rerror.Newf(rerror.UnsupportedVersion, "partition config version %d unsupported", version)
	}

	want, err := checksum.Sum(hashsumType, raw[:structuralLen])
	if err != nil {
		return nil, rerror.Wrap(rerror.MalformedEncoding, err, "hashing partition config")
	}
	if !checksum.Equal(want, hashsum) {
		return nil, rerror.New(rerror.ChecksumMismatch, "partition config checksum mismatch")
	}

	return &PartitionConfig{
		Version:       version,
		HashAlgorithm: hashAlg,
		Sets:          sets,
		Partitions:    parts,
	}, nil
}

// Encode writes the PartitionConfig in the canonical binary layout,
// recomputing the trailing hashsum over the structural prefix.
func (pc *PartitionConfig) Encode(w io.Writer) error {
	var structural bytes.Buffer
	enc := codec.NewEncoder(&structural)
	enc.WriteRaw(Magic)
	enc.WriteU32(CurrentVersion)
	enc.WriteU32(uint32(pc.HashAlgorithm))
	enc.WriteSequenceLen(uint64(len(pc.Sets)))
	for _, s := range pc.Sets {
		enc.WriteU8(s.ID)
		enc.WriteFixedString(s.Name)
	}
	enc.WriteSequenceLen(uint64(len(pc.Partitions)))
	for _, p := range pc.Partitions {
		enc.WriteU8(p.Variant.Byte())
		enc.WriteU8(p.SetID)
		enc.WriteFixedString(p.BootDevice)
		enc.WriteFixedString(p.BootPartition)
		enc.WriteFixedString(p.LinuxDevice)
		enc.WriteFixedString(p.LinuxPartition)
	}
	if enc.Err() != nil {
		return rerror.Wrap(rerror.IoError, enc.Err(), "encoding partition config")
	}

	sum, err := checksum.Sum(pc.HashAlgorithm, structural.Bytes())
	if err != nil {
		return rerror.Wrap(rerror.MalformedEncoding, err, "hashing partition config")
	}

	if _, err := w.Write(structural.Bytes()); err != nil {
		return rerror.Wrap(rerror.IoError, err, "writing partition config")
	}
	trailer := codec.NewEncoder(w)
	trailer.WriteU32(uint32(pc.HashAlgorithm))
	trailer.WriteRaw(sum)
	if trailer.Err() != nil {
		return rerror.Wrap(rerror.IoError, trailer.Err(), "writing partition config trailer")
	}
	return nil
}

// ResolveSet looks up a set by name.
func (pc *PartitionConfig) ResolveSet(name string) (SetDescriptor, error) {
	for _, s := range pc.Sets {
		if s.Name.Equal(name) {
			return s, nil
		}
	}
	return SetDescriptor{}, rerror.Newf(rerror.NotFound, "no partition set named %q", name)
}

// ResolvePartition looks up the descriptor for (setName, v).
func (pc *PartitionConfig) ResolvePartition(setName string, v variant.Variant) (PartitionDescriptor, error) {
	set, err := pc.ResolveSet(setName)
	if err != nil {
		return PartitionDescriptor{}, err
	}
	for _, p := range pc.Partitions {
		if p.SetID == set.ID && p.Variant == v {
			return p, nil
		}
	}
	return PartitionDescriptor{}, rerror.Newf(rerror.NotFound, "no %s partition for set %q", v, setName)
}

// IsUpdateable reports whether both A and B variants exist for setName.
func (pc *PartitionConfig) IsUpdateable(setName string) bool {
	_, errA := pc.ResolvePartition(setName, variant.A)
	_, errB := pc.ResolvePartition(setName, variant.B)
	return errA == nil && errB == nil
}

// UpdateableSetNames returns the names of all sets with both A and B
// variants, in the order they appear in Sets.
func (pc *PartitionConfig) UpdateableSetNames() []string {
	var names []string
	for _, s := range pc.Sets {
		name := s.Name.String()
		if pc.IsUpdateable(name) {
			names = append(names, name)
		}
	}
	return names
}

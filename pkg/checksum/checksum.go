// Package checksum implements the tagged hash-sum abstraction shared by
// PartitionConfig and UpdateState: a small set of selectable algorithms,
// the type tag carried in-band with the digest, grounded on the Rust
// HashAlgorithm/HashSum pair in the teacher's upstream source.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"hash/crc32"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// Type tags which algorithm produced a persisted hash sum. The numeric
// values are part of the on-wire encoding (§4.1's u32 enum rule) and must
// not be reordered.
type Type uint32

const (
	Sha256 Type = 0
	Sha1   Type = 1
	Md5    Type = 2
	Crc32  Type = 3
)

// Size returns the output width in bytes for a given Type.
func (t Type) Size() int {
	switch t {
	case Sha256:
		return 32
	case Sha1:
		return 20
	case Md5:
		return 16
	case Crc32:
		return 4
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t {
	case Sha256:
		return "sha256"
	case Sha1:
		return "sha1"
	case Md5:
		return "md5"
	case Crc32:
		return "crc32"
	default:
		return "unknown"
	}
}

// ParseType maps a manifest checksum field name to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "sha256":
		return Sha256, nil
	case "sha1":
		return Sha1, nil
	case "md5":
		return Md5, nil
	case "crc32":
		return Crc32, nil
	default:
		return 0, errors.Errorf("checksum: unknown algorithm %q", name)
	}
}

// Hasher is the common capability of every supported checksum algorithm:
// new, update, finalize, as named in spec §4.2.
type Hasher interface {
	Update(p []byte)
	Finalize() []byte
	Type() Type
}

type stdHasher struct {
	typ Type
	h   hash.Hash
}

func (s *stdHasher) Update(p []byte) { s.h.Write(p) }
func (s *stdHasher) Finalize() []byte { return s.h.Sum(nil) }
func (s *stdHasher) Type() Type        { return s.typ }

type crc32Hasher struct {
	tab *crc32.Table
	sum uint32
}

func (c *crc32Hasher) Update(p []byte)  { c.sum = crc32.Update(c.sum, c.tab, p) }
func (c *crc32Hasher) Finalize() []byte { return le32(c.sum) }
func (c *crc32Hasher) Type() Type       { return Crc32 }

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// New constructs a fresh Hasher for the given Type. CRC-32 uses the IEEE
// 802.3 polynomial and stores its result little-endian, per spec §9's Open
// Question resolution.
func New(t Type) (Hasher, error) {
	switch t {
	case Sha256:
		return &stdHasher{typ: t, h: sha256.New()}, nil
	case Sha1:
		return &stdHasher{typ: t, h: sha1.New()}, nil
	case Md5:
		return &stdHasher{typ: t, h: md5.New()}, nil
	case Crc32:
		return &crc32Hasher{tab: crc32.IEEETable}, nil
	default:
		return nil, errors.Errorf("checksum: unsupported type %d", t)
	}
}

// Sum hashes the full content of data in one call.
func Sum(t Type, data []byte) ([]byte, error) {
	h, err := New(t)
	if err != nil {
		return nil, err
	}
	h.Update(data)
	return h.Finalize(), nil
}

// Equal performs a constant-time comparison of two digests, as required by
// spec §4.2 ("bytewise constant-time-equal on the full output").
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Digest renders sum as a canonical "algo:hex" string using
// github.com/opencontainers/go-digest for SHA-256 (the OCI-registered
// algorithm) and a matching manual form for the other supported types, so
// every persisted or manifest checksum has one display format regardless
// of algorithm.
func Digest(t Type, sum []byte) string {
	if t == Sha256 {
		return digest.NewDigestFromEncoded(digest.SHA256, hex.EncodeToString(sum)).String()
	}
	return t.String() + ":" + hex.EncodeToString(sum)
}

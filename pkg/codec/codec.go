// Package codec implements the deterministic binary encoding shared by
// PartitionConfig and UpdateState: little-endian fixed-width integers,
// u8/u32 enums, u8 booleans (0/1 only), 36-byte NUL-padded ASCII strings,
// and u64-length-prefixed sequences, with no padding and no tags — the
// on-wire layout a bootloader reading the same bytes also expects.
//
// This mirrors a "bincode" layout one field at a time, the way the
// original Rust source calls bincode explicitly per field rather than
// relying on a derive macro; Go has no equivalent reflection-free derive,
// so the same explicitness carries over naturally.
package codec

import (
	"encoding/binary"
	"io"

	"github.com/Elektrobit/rupdate/pkg/fixedstring"
	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// Encoder writes primitive values in the shared binary layout.
type Encoder struct {
	w   io.Writer
	err error
}

// NewEncoder wraps w for sequential field writes.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// Err returns the first error encountered by any Write call, if any.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

// WriteU8 writes a single byte.
func (e *Encoder) WriteU8(v uint8) { e.write([]byte{v}) }

// WriteU16 writes a little-endian uint16.
func (e *Encoder) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.write(b[:])
}

// WriteI16 writes a little-endian int16.
func (e *Encoder) WriteI16(v int16) { e.WriteU16(uint16(v)) }

// WriteU32 writes a little-endian uint32.
func (e *Encoder) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.write(b[:])
}

// WriteU64 writes a little-endian uint64.
func (e *Encoder) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.write(b[:])
}

// WriteBool writes a bool as a single byte, 0 or 1.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.WriteU8(1)
	} else {
		e.WriteU8(0)
	}
}

// WriteFixedString writes the raw 36-byte on-wire form.
func (e *Encoder) WriteFixedString(fs fixedstring.FixedString) { e.write(fs.Bytes()) }

// WriteRaw writes a byte slice verbatim with no length prefix, for fields
// whose length is implied elsewhere (e.g. a hash sum whose width follows
// from its type tag).
func (e *Encoder) WriteRaw(p []byte) { e.write(p) }

// WriteSequenceLen writes the u64 element count preceding a sequence.
func (e *Encoder) WriteSequenceLen(n uint64) { e.WriteU64(n) }

// Decoder reads primitive values in the shared binary layout.
type Decoder struct {
	r   io.Reader
	err error
}

// NewDecoder wraps r for sequential field reads.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{r: r} }

// Err returns the first error encountered by any Read call, if any.
func (d *Decoder) Err() error { return d.err }

func (d *Decoder) read(n int) []byte {
	if d.err != nil {
		return make([]byte, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = rerror.Wrap(rerror.IoError, err, "short read while decoding")
	}
	return b
}

// ReadU8 reads a single byte.
func (d *Decoder) ReadU8() uint8 { return d.read(1)[0] }

// ReadU16 reads a little-endian uint16.
func (d *Decoder) ReadU16() uint16 { return binary.LittleEndian.Uint16(d.read(2)) }

// ReadI16 reads a little-endian int16.
func (d *Decoder) ReadI16() int16 { return int16(d.ReadU16()) }

// ReadU32 reads a little-endian uint32.
func (d *Decoder) ReadU32() uint32 { return binary.LittleEndian.Uint32(d.read(4)) }

// ReadU64 reads a little-endian uint64.
func (d *Decoder) ReadU64() uint64 { return binary.LittleEndian.Uint64(d.read(8)) }

// ReadBool reads a byte and requires it to be 0 or 1, per spec §4.1.
func (d *Decoder) ReadBool() bool {
	v := d.ReadU8()
	if d.err != nil {
		return false
	}
	switch v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.err = rerror.Newf(rerror.MalformedEncoding, "invalid bool byte 0x%02x", v)
		return false
	}
}

// ReadFixedString reads a 36-byte on-wire field.
func (d *Decoder) ReadFixedString() fixedstring.FixedString {
	b := d.read(fixedstring.Size)
	if d.err != nil {
		return fixedstring.FixedString{}
	}
	fs, err := fixedstring.FromBytes(b)
	if err != nil {
		d.err = rerror.Wrap(rerror.MalformedEncoding, err, "decoding fixed string")
	}
	return fs
}

// ReadRaw reads n bytes verbatim.
func (d *Decoder) ReadRaw(n int) []byte { return d.read(n) }

// ReadSequenceLen reads the u64 element count preceding a sequence.
func (d *Decoder) ReadSequenceLen() uint64 { return d.ReadU64() }

// ReadMagic reads len(want) bytes and fails with BadMagic if they don't
// match exactly.
func (d *Decoder) ReadMagic(want []byte) {
	got := d.read(len(want))
	if d.err != nil {
		return
	}
	for i := range want {
		if got[i] != want[i] {
			d.err = rerror.Newf(rerror.BadMagic, "expected magic %q, got %q", want, got)
			return
		}
	}
}

// Package bundle implements the streaming manifest + image reader over an
// uncompressed or gzip-compressed tar archive, grounded on the Rust
// core::bundle module's Bundle type and on the streaming
// archive/tar + compress/gzip approach also used by the
// mendersoftware/mender-artifact reader in the retrieval pack.
package bundle

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/Elektrobit/rupdate/pkg/checksum"
	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// ManifestEntryName is the required name of the first tar entry.
const ManifestEntryName = "Manifest.json"

// KnownManifestVersions is the set of manifest versions this reader
// accepts, per spec §4.6's "version ∈ known set" validation.
var KnownManifestVersions = map[int]bool{1: true}

var gzipMagic = []byte{0x1f, 0x8b}

// Image is one manifest-declared image: its logical name, the tar entry
// filename it is expected to appear as, and its expected checksum.
type Image struct {
	Name         string
	Filename     string
	ChecksumType checksum.Type
	Checksum     []byte
}

// Manifest is the decoded Manifest.json.
type Manifest struct {
	Version         int
	RollbackAllowed bool
	Images          []Image
}

type rawManifest struct {
	Version         int        `json:"version"`
	RollbackAllowed bool       `json:"rollback_allowed"`
	Images          []rawImage `json:"images"`
}

type rawImage struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Sha256   string `json:"sha256,omitempty"`
	Sha1     string `json:"sha1,omitempty"`
	Md5      string `json:"md5,omitempty"`
	// Digest accepts an OCI-style "algo:hex" digest string (see
	// github.com/opencontainers/go-digest) as an alternative to the
	// bare-hex Sha256/Sha1/Md5 fields, per SPEC_FULL.md §4.2.
	Digest string `json:"digest,omitempty"`
}

func (ri rawImage) resolveChecksum() (checksum.Type, []byte, error) {
	var (
		typ    checksum.Type
		hexSum string
		found  int
	)
	for t, v := range map[checksum.Type]string{
		checksum.Sha256: ri.Sha256,
		checksum.Sha1:   ri.Sha1,
		checksum.Md5:    ri.Md5,
	} {
		if v != "" {
			typ, hexSum = t, v
			found++
		}
	}
	if ri.Digest != "" {
		d := digest.Digest(ri.Digest)
		if err := d.Validate(); err != nil {
			return 0, nil, rerror.Wrapf(rerror.BadBundle, err, "image %q has invalid digest %q", ri.Name, ri.Digest)
		}
		digestType, err := checksum.ParseType(string(d.Algorithm()))
		if err != nil {
			return 0, nil, rerror.Wrapf(rerror.BadBundle, err, "image %q uses an unsupported digest algorithm", ri.Name)
		}
		typ, hexSum = digestType, d.Encoded()
		found++
	}
	if found != 1 {
		return 0, nil, rerror.Newf(rerror.BadBundle, "image %q must declare exactly one of sha256/sha1/md5/digest, found %d", ri.Name, found)
	}
	sum, err := hex.DecodeString(hexSum)
	if err != nil {
		return 0, nil, rerror.Wrapf(rerror.BadBundle, err, "image %q has invalid checksum encoding", ri.Name)
	}
	if len(sum) != typ.Size() {
		return 0, nil, rerror.Newf(rerror.BadBundle, "image %q checksum has wrong length for %s", ri.Name, typ)
	}
	return typ, sum, nil
}

// Reader streams a bundle's manifest, then its images in manifest order.
type Reader struct {
	tr       *tar.Reader
	manifest Manifest
	nextIdx  int
}

// Open reads and validates the manifest from the head of r, auto-detecting
// gzip compression by its magic bytes, and returns a Reader positioned to
// yield the declared images via NextImage.
func Open(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(2)
	var tarSrc io.Reader = br
	if err == nil && len(peek) == 2 && peek[0] == gzipMagic[0] && peek[1] == gzipMagic[1] {
		gz, gzErr := gzip.NewReader(br)
		if gzErr != nil {
			return nil, rerror.Wrap(rerror.BadBundle, gzErr, "opening gzip bundle stream")
		}
		tarSrc = gz
	}

	tr := tar.NewReader(tarSrc)
	hdr, err := tr.Next()
	if err != nil {
		return nil, rerror.Wrap(rerror.BadBundle, err, "reading first bundle entry")
	}
	if hdr.Name != ManifestEntryName {
		return nil, rerror.Newf(rerror.BadBundle, "first bundle entry must be %s, got %q", ManifestEntryName, hdr.Name)
	}

	raw, err := io.ReadAll(tr)
	if err != nil {
		return nil, rerror.Wrap(rerror.BadBundle, err, "reading manifest")
	}

	var rm rawManifest
	if err := json.Unmarshal(raw, &rm); err != nil {
		return nil, rerror.Wrap(rerror.BadBundle, err, "parsing manifest JSON")
	}
	if !KnownManifestVersions[rm.Version] {
		return nil, rerror.Newf(rerror.BadBundle, "unknown manifest version %d", rm.Version)
	}
	if len(rm.Images) == 0 {
		return nil, rerror.New(rerror.BadBundle, "manifest declares no images")
	}

	images := make([]Image, 0, len(rm.Images))
	for _, ri := range rm.Images {
		if ri.Name == "" || ri.Filename == "" {
			return nil, rerror.New(rerror.BadBundle, "manifest image missing name or filename")
		}
		typ, sum, err := ri.resolveChecksum()
		if err != nil {
			return nil, err
		}
		images = append(images, Image{Name: ri.Name, Filename: ri.Filename, ChecksumType: typ, Checksum: sum})
	}

	return &Reader{
		tr: tr,
		manifest: Manifest{
			Version:         rm.Version,
			RollbackAllowed: rm.RollbackAllowed,
			Images:          images,
		},
	}, nil
}

// Manifest returns the validated manifest.
func (r *Reader) Manifest() Manifest { return r.manifest }

// NextImage advances to the next image in manifest order, returning its
// declared metadata and an io.Reader valid until the next call to
// NextImage or Finish — the same streaming contract archive/tar itself
// uses, so callers tee the returned reader directly into a device write
// and a hasher without buffering the whole image.
func (r *Reader) NextImage() (Image, io.Reader, error) {
	if r.nextIdx >= len(r.manifest.Images) {
		return Image{}, nil, rerror.New(rerror.BadBundle, "no more images declared by manifest")
	}
	want := r.manifest.Images[r.nextIdx]

	hdr, err := r.tr.Next()
	if err != nil {
		return Image{}, nil, rerror.Wrapf(rerror.BadBundle, err, "reading tar entry for image %q", want.Name)
	}
	if hdr.Name != want.Filename {
		return Image{}, nil, rerror.Newf(rerror.BadBundle, "expected image file %q, got %q", want.Filename, hdr.Name)
	}

	r.nextIdx++
	return want, r.tr, nil
}

// Finish confirms every manifest entry was observed exactly once and that
// no trailing tar entries remain, per spec §4.6's end-of-stream assertion.
func (r *Reader) Finish() error {
	if r.nextIdx != len(r.manifest.Images) {
		return rerror.Newf(rerror.BadBundle, "manifest declared %d images, only %d observed", len(r.manifest.Images), r.nextIdx)
	}
	if _, err := r.tr.Next(); err != io.EOF {
		return rerror.New(rerror.BadBundle, "unexpected trailing entries after declared images")
	}
	return nil
}

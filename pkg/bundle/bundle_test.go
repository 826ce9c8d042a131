package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTar(t *testing.T, manifestJSON string, images map[string][]byte, order []string, gzipped bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.Writer = &buf
	var gz *gzip.Writer
	if gzipped {
		gz = gzip.NewWriter(&buf)
		w = gz
	}

	tw := tar.NewWriter(w)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: ManifestEntryName, Size: int64(len(manifestJSON)), Mode: 0644}))
	_, err := tw.Write([]byte(manifestJSON))
	require.NoError(t, err)

	for _, name := range order {
		data := images[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(data)), Mode: 0644}))
		_, err := tw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	if gz != nil {
		require.NoError(t, gz.Close())
	}
	return buf.Bytes()
}

func sha256hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestHappyPathUncompressed(t *testing.T) {
	payload := []byte("root filesystem contents")
	manifest := `{"version":1,"rollback_allowed":true,"images":[{"name":"rootfs","filename":"rootfs.img","sha256":"` + sha256hex(payload) + `"}]}`
	data := buildTar(t, manifest, map[string][]byte{"rootfs.img": payload}, []string{"rootfs.img"}, false)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, r.Manifest().RollbackAllowed)

	img, stream, err := r.NextImage()
	require.NoError(t, err)
	assert.Equal(t, "rootfs", img.Name)

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, r.Finish())
}

func TestGzipAutoDetected(t *testing.T) {
	payload := []byte("gzipped rootfs")
	manifest := `{"version":1,"rollback_allowed":false,"images":[{"name":"rootfs","filename":"rootfs.img","sha256":"` + sha256hex(payload) + `"}]}`
	data := buildTar(t, manifest, map[string][]byte{"rootfs.img": payload}, []string{"rootfs.img"}, true)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)

	_, stream, err := r.NextImage()
	require.NoError(t, err)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, r.Finish())
}

func TestFirstEntryMustBeManifest(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "not-manifest.json", Size: 2, Mode: 0644}))
	_, _ = tw.Write([]byte("{}"))
	require.NoError(t, tw.Close())

	_, err := Open(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestMissingImageEntryIsBadBundle(t *testing.T) {
	manifest := `{"version":1,"rollback_allowed":true,"images":[{"name":"rootfs","filename":"rootfs.img","sha256":"` + sha256hex([]byte("x")) + `"}]}`
	data := buildTar(t, manifest, map[string][]byte{}, nil, false)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	_, _, err = r.NextImage()
	assert.Error(t, err)
}

func TestTrailingEntryIsBadBundle(t *testing.T) {
	payload := []byte("x")
	manifest := `{"version":1,"rollback_allowed":true,"images":[{"name":"rootfs","filename":"rootfs.img","sha256":"` + sha256hex(payload) + `"}]}`
	data := buildTar(t, manifest, map[string][]byte{"rootfs.img": payload, "extra.img": payload}, []string{"rootfs.img", "extra.img"}, false)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	_, stream, err := r.NextImage()
	require.NoError(t, err)
	_, _ = io.ReadAll(stream)

	assert.Error(t, r.Finish())
}

func TestManifestRequiresExactlyOneChecksumField(t *testing.T) {
	manifest := `{"version":1,"rollback_allowed":true,"images":[{"name":"rootfs","filename":"rootfs.img"}]}`
	data := buildTar(t, manifest, map[string][]byte{"rootfs.img": []byte("x")}, []string{"rootfs.img"}, false)

	_, err := Open(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestManifestRejectsUnknownVersion(t *testing.T) {
	manifest := `{"version":99,"rollback_allowed":true,"images":[{"name":"rootfs","filename":"rootfs.img","sha256":"` + sha256hex([]byte("x")) + `"}]}`
	data := buildTar(t, manifest, map[string][]byte{"rootfs.img": []byte("x")}, []string{"rootfs.img"}, false)

	_, err := Open(bytes.NewReader(data))
	assert.Error(t, err)
}

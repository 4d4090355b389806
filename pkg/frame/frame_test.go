package frame

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 10, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestEncode(t *testing.T) {
	f, err := Encode(solid(32, 16), 80)
	require.NoError(t, err)
	assert.Equal(t, 32, f.Width)
	assert.Equal(t, 16, f.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(f.Data))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())

	raw, err := base64.StdEncoding.DecodeString(f.Base64())
	require.NoError(t, err)
	assert.Equal(t, f.Data, raw)
	assert.True(t, strings.HasPrefix(f.DataURL(), "data:image/jpeg;base64,"))
}

func TestEncode_NoFrame(t *testing.T) {
	_, err := Encode(nil, 80)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)

	_, err = Encode(image.NewRGBA(image.Rect(0, 0, 0, 10)), 80)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestDirectorySource_NewestFile(t *testing.T) {
	dir := t.TempDir()
	src := NewDirectorySource("gate", dir)
	ctx := context.Background()

	_, err := src.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrCaptureUnavailable, "closed source has no frame")

	require.NoError(t, src.Open(ctx))
	_, err = src.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrCaptureUnavailable, "empty directory has no frame")

	older := filepath.Join(dir, "a.png")
	newer := filepath.Join(dir, "b.png")
	writePNG(t, older, solid(4, 4))
	writePNG(t, newer, solid(8, 6))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	f, err := Capture(ctx, src, 80)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Width)
	assert.Equal(t, 6, f.Height)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	_, err = src.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestDirectorySource_OpenMissingDir(t *testing.T) {
	src := NewDirectorySource("gate", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, src.Open(context.Background()))
}

func TestHTTPSnapshotSource(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, solid(5, 5))
	}))
	defer srv.Close()

	ctx := context.Background()
	src := NewHTTPSnapshotSource("crane", srv.URL, srv.Client())
	require.NoError(t, src.Open(ctx))

	f, err := Capture(ctx, src, 70)
	require.NoError(t, err)
	assert.Equal(t, 5, f.Width)

	status.Store(http.StatusServiceUnavailable)
	_, err = src.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)

	require.NoError(t, src.Close())
}

// pngHeader is a PNG signature and IHDR chunk declaring w x h, with no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_RejectsOversizedImages(t *testing.T) {
	_, err := Decode(bytes.NewReader(pngHeader(10000, 10000)))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	var small bytes.Buffer
	require.NoError(t, png.Encode(&small, solid(3, 2)))
	img, err := decodeLimited(bytes.NewReader(small.Bytes()), int64(small.Len()))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = decodeLimited(bytes.NewReader(small.Bytes()), int64(small.Len()-1))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestHTTPSnapshotSource_BoundsBody(t *testing.T) {
	var body atomic.Value
	body.Store(pngHeader(10000, 10000))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body.Load().([]byte))
	}))
	defer srv.Close()

	ctx := context.Background()
	src := NewHTTPSnapshotSource("crane", srv.URL, srv.Client())
	require.NoError(t, src.Open(ctx))

	_, err := src.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	var small bytes.Buffer
	require.NoError(t, png.Encode(&small, solid(5, 5)))
	body.Store(small.Bytes())
	src.maxBytes = 16

	_, err = src.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

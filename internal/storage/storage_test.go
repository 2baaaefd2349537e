package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend records uploaded objects.
type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memBackend) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if m.failOn != "" && strings.Contains(key, m.failOn) {
		return errors.New("backend down")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBackend) URL(key string) string { return "https://cdn.example.com/" + key }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fixedUploader(b Backend) *Uploader {
	u := NewUploader(b)
	u.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }
	return u
}

func TestUploadWideImageGetsThumbnail(t *testing.T) {
	b := newMemBackend()
	u := fixedUploader(b)

	m, err := u.Upload(context.Background(), "living room.png", pngBytes(t, 1200, 600))
	require.NoError(t, err)

	assert.Equal(t, "image/png", m.ContentType)
	assert.Equal(t, "living room.png", m.OriginalName)
	assert.True(t, strings.HasPrefix(m.Key, "media/2026/03/"))
	assert.True(t, strings.HasSuffix(m.Key, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+m.Key, m.URL)
	require.NotEmpty(t, m.ThumbURL)
	assert.Len(t, b.objects, 2)

	thumbKey := strings.TrimPrefix(m.ThumbURL, "https://cdn.example.com/")
	cfg, err := jpegConfig(b.objects[thumbKey])
	require.NoError(t, err)
	assert.Equal(t, thumbMaxWidth, cfg.Width)
	assert.Equal(t, thumbMaxWidth/2, cfg.Height)
}

func jpegConfig(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	return cfg, err
}

func TestUploadSmallImageSkipsThumbnail(t *testing.T) {
	b := newMemBackend()
	m, err := fixedUploader(b).Upload(context.Background(), "icon.png", pngBytes(t, 64, 64))
	require.NoError(t, err)
	assert.Empty(t, m.ThumbURL)
	assert.Len(t, b.objects, 1)
}

func TestUploadThumbnailFailureIsNotFatal(t *testing.T) {
	b := newMemBackend()
	b.failOn = "_thumb"
	m, err := fixedUploader(b).Upload(context.Background(), "wide.png", pngBytes(t, 1000, 100))
	require.NoError(t, err)
	assert.Empty(t, m.ThumbURL)
	assert.NotEmpty(t, m.URL)
}

func TestUploadRejects(t *testing.T) {
	u := fixedUploader(newMemBackend())
	ctx := context.Background()

	_, err := u.Upload(ctx, "empty.png", nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = u.Upload(ctx, "notes.txt", []byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = u.Upload(ctx, "doc.pdf", []byte("%PDF-1.4\n"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = u.Upload(ctx, "huge.jpg", make([]byte, MaxUploadSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadBackendFailure(t *testing.T) {
	b := newMemBackend()
	b.failOn = "media/"
	_, err := fixedUploader(b).Upload(context.Background(), "a.png", pngBytes(t, 10, 10))
	assert.Error(t, err)
}

func TestDetectTypeSVG(t *testing.T) {
	svg := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	assert.Equal(t, "image/svg+xml", DetectType("logo.SVG", svg))
	assert.NotEqual(t, "image/svg+xml", DetectType("logo.xml", svg))
}

func TestLocalBackend(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	l, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "media/2026/03/a.png", "image/png", strings.NewReader("png"), 3))

	got, err := os.ReadFile(filepath.Join(root, "media", "2026", "03", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))
	assert.Equal(t, "/media/media/2026/03/a.png", l.URL("media/2026/03/a.png"))

	entries, err := os.ReadDir(filepath.Join(root, "media", "2026", "03"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")

	require.NoError(t, l.Delete(ctx, "media/2026/03/a.png"))
	require.NoError(t, l.Delete(ctx, "media/2026/03/a.png"), "deleting twice is fine")
}

func TestLocalBackendRejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../evil.png", "/etc/passwd", ".", "a/../../b"} {
		err := l.Put(context.Background(), key, "image/png", strings.NewReader("x"), 1)
		assert.Error(t, err, key)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3("https://s3.example.com", "us-east-1", "k", "s", "", "https://cdn.example.com")
	assert.Error(t, err)

	c, err := NewS3("https://s3.example.com/", "us-east-1", "k", "s", "site", "https://cdn.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a.png", c.URL("media/a.png"))
}

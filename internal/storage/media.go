package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"atelier/internal/models"
)

const (
	// MaxUploadSize caps a single image upload (20 MB).
	MaxUploadSize = 20 << 20

	// thumbMaxWidth is the maximum thumbnail width in pixels.
	thumbMaxWidth = 480

	// thumbQuality is the JPEG quality for generated thumbnails.
	thumbQuality = 80

	// maxImagePixels caps decoded size to avoid decompression bombs.
	maxImagePixels = 100_000_000
)

var (
	// ErrTooLarge is returned for uploads over MaxUploadSize.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned when the sniffed type is not an allowed image.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("empty file")
)

// allowedTypes maps accepted MIME types to the extension used in keys.
var allowedTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// thumbableTypes get a JPEG thumbnail. GIF keeps its animation and SVG
// is vector.
var thumbableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Uploader validates images and writes them, with a thumbnail for wide
// raster images, to a Backend.
type Uploader struct {
	backend Backend
	now     func() time.Time
}

// NewUploader wraps backend.
func NewUploader(backend Backend) *Uploader {
	return &Uploader{backend: backend, now: time.Now}
}

// Upload stores data under media/YYYY/MM/<uuid><ext> and returns its
// description. A failed thumbnail is logged and skipped.
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte) (*models.Media, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	contentType := DetectType(filename, data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	now := u.now().UTC()
	id := uuid.New().String()
	key := fmt.Sprintf("media/%d/%02d/%s%s", now.Year(), now.Month(), id, ext)

	if err := u.backend.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}

	m := &models.Media{
		Key:          key,
		URL:          u.backend.URL(key),
		OriginalName: filepath.Base(filename),
		ContentType:  contentType,
		SizeBytes:    int64(len(data)),
	}

	if thumbableTypes[contentType] {
		thumb, err := Thumbnail(data, thumbMaxWidth)
		switch {
		case err != nil:
			slog.Warn("thumbnail generation failed", "error", err, "key", key)
		case thumb != nil:
			tk := fmt.Sprintf("media/%d/%02d/%s_thumb.jpg", now.Year(), now.Month(), id)
			if err := u.backend.Put(ctx, tk, "image/jpeg", bytes.NewReader(thumb), int64(len(thumb))); err != nil {
				slog.Warn("thumbnail upload failed", "error", err, "key", tk)
			} else {
				m.ThumbURL = u.backend.URL(tk)
			}
		}
	}

	return m, nil
}

// DetectType sniffs the content type from the first bytes. SVG is
// recognised by extension because sniffing reports it as XML or text.
func DetectType(filename string, data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasSuffix(strings.ToLower(filename), ".svg") &&
		(strings.Contains(ct, "xml") || strings.HasPrefix(ct, "text/plain")) {
		return "image/svg+xml"
	}
	return ct
}

// Thumbnail scales an image down to maxWidth, preserving aspect ratio, and
// encodes it as JPEG. It returns nil when the image is already narrow enough.
func Thumbnail(data []byte, maxWidth int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width <= maxWidth {
		return nil, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	height := int(float64(bounds.Dy()) * float64(maxWidth) / float64(bounds.Dx()))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

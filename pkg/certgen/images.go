package certgen

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
)

// ImageCache holds the source bytes of every image field for the whole run.
// It is filled once before the first row and only read afterwards, so workers
// may share it.
type ImageCache struct {
	data map[string][]byte
}

func newImageCache(fields []layout.Field) *ImageCache {
	c := &ImageCache{data: make(map[string][]byte)}
	for _, f := range fields {
		if img, ok := f.(layout.Image); ok {
			c.data[img.ID] = img.Source
		}
	}
	return c
}

// Get returns the bytes for an image field id.
func (c *ImageCache) Get(fieldID string) ([]byte, bool) {
	data, ok := c.data[fieldID]
	return data, ok
}

// imageInfo describes decoded image headers.
type imageInfo struct {
	Type   string // fpdf image type ("PNG" or "JPG")
	Width  int    // Intrinsic pixels
	Height int
}

var errNoImageData = errors.New("no image data")

// probeImage reads the image header, trying PNG first and JPEG second.
func probeImage(fieldID string, data []byte) (imageInfo, error) {
	if len(data) == 0 {
		return imageInfo{}, &ImageDecodeError{FieldID: fieldID, Err: errNoImageData}
	}

	cfg, pngErr := png.DecodeConfig(bytes.NewReader(data))
	if pngErr == nil {
		return checkDims(fieldID, imageInfo{Type: "PNG", Width: cfg.Width, Height: cfg.Height})
	}
	cfg, jpegErr := jpeg.DecodeConfig(bytes.NewReader(data))
	if jpegErr == nil {
		return checkDims(fieldID, imageInfo{Type: "JPG", Width: cfg.Width, Height: cfg.Height})
	}

	return imageInfo{}, &ImageDecodeError{
		FieldID:  fieldID,
		Detected: mimetype.Detect(data).String(),
		Err:      errors.Join(pngErr, jpegErr),
	}
}

func checkDims(fieldID string, info imageInfo) (imageInfo, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return imageInfo{}, &ImageDecodeError{FieldID: fieldID, Err: errors.New("image has zero size")}
	}
	return info, nil
}

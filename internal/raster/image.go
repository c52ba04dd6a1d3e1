// Package raster provides the page rasterization backends: full image
// decoding for standalone image files and single-page PDF rendering.
package raster

import (
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// Decoder loads image files into fully materialized pixel buffers.
type Decoder struct{}

// NewDecoder creates an image decoder supporting JPEG, PNG, BMP and TIFF.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reads and fully decodes the image at path. There is no deferred
// decoding: the returned buffer is complete and owned by the caller.
func (d *Decoder) Decode(path string) (*domain.RasterImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.DecodeError(fmt.Sprintf("open image %s", path), err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, domain.DecodeError(fmt.Sprintf("decode image %s", path), err)
	}

	return domain.NewRasterImage(img), nil
}

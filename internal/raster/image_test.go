package raster

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

func encodeTo(t *testing.T, path string, img image.Image, encode func(f *os.File) error) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, encode(f))
}

func TestDecodeSupportedFormats(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 12, 8))

	cases := []struct {
		name   string
		encode func(f *os.File) error
	}{
		{"sample.png", func(f *os.File) error { return png.Encode(f, src) }},
		{"sample.jpg", func(f *os.File) error { return jpeg.Encode(f, src, nil) }},
		{"sample.bmp", func(f *os.File) error { return bmp.Encode(f, src) }},
		{"sample.tif", func(f *os.File) error { return tiff.Encode(f, src, nil) }},
	}

	d := NewDecoder()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name)
			encodeTo(t, path, src, tc.encode)

			img, err := d.Decode(path)
			require.NoError(t, err)
			assert.Equal(t, 12, img.Width)
			assert.Equal(t, 8, img.Height)
			assert.NotNil(t, img.Pixels)
		})
	}
}

func TestDecodeCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an image"), 0o644))

	_, err := NewDecoder().Decode(path)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindDecode, domain.ErrorKindOf(err))
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := NewDecoder().Decode(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindDecode, domain.ErrorKindOf(err))
}

func TestRasterImageChannels(t *testing.T) {
	gray := domain.NewRasterImage(image.NewGray(image.Rect(0, 0, 2, 2)))
	assert.Equal(t, 1, gray.Channels)

	rgba := domain.NewRasterImage(image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	assert.Equal(t, 4, rgba.Channels)
}

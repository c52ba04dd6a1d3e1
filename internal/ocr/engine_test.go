package ocr

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(Config{})
	assert.Equal(t, "tesseract", e.Name())
	assert.Equal(t, "eng", e.Language())
}

func TestNewEngineKeepsLanguage(t *testing.T) {
	e := NewEngine(Config{Language: "rus+eng"})
	assert.Equal(t, "rus+eng", e.Language())
}

func TestRecognizeNilImage(t *testing.T) {
	e := NewEngine(Config{})
	_, err := e.Recognize(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindOCR, domain.ErrorKindOf(err))
}

func TestRecognizeCancelledContext(t *testing.T) {
	e := NewEngine(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img := domain.NewRasterImage(image.NewGray(image.Rect(0, 0, 4, 4)))
	_, err := e.Recognize(ctx, img)
	assert.ErrorIs(t, err, context.Canceled)
}

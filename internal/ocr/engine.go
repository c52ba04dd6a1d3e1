// Package ocr provides the Tesseract text-recognition engine.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// Engine implements domain.Recognizer on top of the gosseract client. A fresh
// client is created per call; the underlying Tesseract API is not safe for
// reuse across differently configured invocations.
type Engine struct {
	language    string
	tessdataDir string
	pageSegMode int // -1 keeps the Tesseract default

	clientFactory func() *gosseract.Client
}

// Config holds engine settings.
type Config struct {
	Language    string
	TessdataDir string
	PageSegMode int
}

// NewEngine constructs a Tesseract-backed recognizer.
func NewEngine(cfg Config) *Engine {
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	return &Engine{
		language:      lang,
		tessdataDir:   cfg.TessdataDir,
		pageSegMode:   cfg.PageSegMode,
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Language returns the configured recognition language(s).
func (e *Engine) Language() string { return e.language }

// Recognize runs OCR over the raster image and returns the raw extracted
// text, trimmed of surrounding whitespace.
func (e *Engine) Recognize(ctx context.Context, img *domain.RasterImage) (string, error) {
	if img == nil || img.Pixels == nil {
		return "", domain.OCRError("nil input image", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img.Pixels); err != nil {
		return "", domain.OCRError("encode image for recognition", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if e.tessdataDir != "" {
		if err := c.SetTessdataPrefix(e.tessdataDir); err != nil {
			return "", domain.OCRError(fmt.Sprintf("set tessdata dir %s", e.tessdataDir), err)
		}
	}
	if err := c.SetLanguage(strings.Split(e.language, "+")...); err != nil {
		return "", domain.OCRError(fmt.Sprintf("set language %s", e.language), err)
	}
	if e.pageSegMode >= 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.pageSegMode)); err != nil {
			return "", domain.OCRError(fmt.Sprintf("set page segmentation mode %d", e.pageSegMode), err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", domain.OCRError("set image", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", domain.OCRError("recognize text", err)
	}
	return strings.TrimSpace(text), nil
}

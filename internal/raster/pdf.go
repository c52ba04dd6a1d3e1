package raster

import (
	"fmt"

	"github.com/gen2brain/go-fitz"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// FitzBackend rasterizes PDF pages using go-fitz (MuPDF).
//
// The document is opened and closed inside every call. That means each page
// render pays the document-open cost again, but it bounds peak memory to a
// single page's pixels regardless of document size and leaves no handle held
// between pulls of the stream. MuPDF is also not safe for concurrent use
// against one document, so a fresh handle per call keeps callers honest.
type FitzBackend struct{}

// NewFitzBackend creates a go-fitz PDF rasterization backend.
func NewFitzBackend() *FitzBackend {
	return &FitzBackend{}
}

// PageCount queries the document for its total page count without rendering
// any page.
func (b *FitzBackend) PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, domain.PDFInfoError(fmt.Sprintf("open pdf %s", path), err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// RenderPage rasterizes exactly one page (1-based) at the given DPI.
func (b *FitzBackend) RenderPage(path string, dpi, pageNumber int) (*domain.RasterImage, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.PDFRenderError(fmt.Sprintf("open pdf %s", path), err)
	}
	defer doc.Close()

	// go-fitz pages are zero-based.
	img, err := doc.ImageDPI(pageNumber-1, float64(dpi))
	if err != nil {
		return nil, domain.PDFRenderError(
			fmt.Sprintf("render page %d of %s at %d dpi", pageNumber, path, dpi), err)
	}

	return domain.NewRasterImage(img), nil
}

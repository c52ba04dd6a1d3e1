package domain

import "context"

// ImageDecoder loads and fully decodes an image file from disk.
type ImageDecoder interface {
	Decode(path string) (*RasterImage, error)
}

// PDFRasterizer exposes the two-phase PDF contract: a page-count probe that
// does not render anything, and a single-page render at a given resolution.
// Implementations must never rasterize more than the requested page per call.
type PDFRasterizer interface {
	// PageCount queries the document for its total page count.
	PageCount(path string) (int, error)

	// RenderPage rasterizes exactly one page (1-based) at the given DPI.
	RenderPage(path string, dpi, pageNumber int) (*RasterImage, error)
}

// Preprocessor applies OCR-oriented filtering to a raster image.
type Preprocessor interface {
	Apply(img *RasterImage) (*RasterImage, error)
}

// Recognizer extracts plain text from a raster image.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, img *RasterImage) (string, error)
}

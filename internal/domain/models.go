package domain

import (
	"fmt"
	"image"
)

// SourceKind identifies what a page descriptor was produced from.
type SourceKind string

const (
	SourceImage   SourceKind = "image"
	SourcePDFPage SourceKind = "pdf_page"
)

// PageDescriptor identifies one unit of work: a standalone image or a single
// PDF page. It is created when the file or page is discovered and never
// mutated afterwards.
type PageDescriptor struct {
	// InputRootName is the base name of the scanned root directory. Carried
	// for traceability only; it is not part of the uniqueness key.
	InputRootName string
	// RelativePath is the source file path relative to the scanned root.
	// Stable across runs and used for logs and output naming.
	RelativePath string
	// OriginalFilename is the base name of the source file.
	OriginalFilename string
	// SourcePath is the absolute path on disk, for diagnostics.
	SourcePath string
	// Kind reports whether this descriptor refers to an image file or a
	// rendered PDF page.
	Kind SourceKind
	// PageNumber is 1 for images and the 1-based page index for PDF pages.
	PageNumber int
}

// Key returns the (relative path, page number) pair that is unique within a
// single scan.
func (d PageDescriptor) Key() string {
	return fmt.Sprintf("%s#%d", d.RelativePath, d.PageNumber)
}

// RasterImage is an owned, fully decoded pixel buffer. Ownership transfers to
// whoever receives it; the producer does not retain a reference.
type RasterImage struct {
	Pixels   image.Image
	Width    int
	Height   int
	Channels int
}

// NewRasterImage wraps a decoded image, recording its dimensions and channel
// count.
func NewRasterImage(img image.Image) *RasterImage {
	b := img.Bounds()
	return &RasterImage{
		Pixels:   img,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: channelsOf(img),
	}
}

func channelsOf(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return 4
	default:
		return 3
	}
}

// PageItem is the unit produced by the page stream: either a successfully
// decoded (descriptor, image) pair or a failure marker. A failed item without
// a descriptor signals a scan-level failure rather than a specific page.
type PageItem struct {
	Descriptor *PageDescriptor
	Image      *RasterImage
	Err        error
}

// OK reports whether the item carries a decoded image.
func (it PageItem) OK() bool {
	return it.Err == nil
}

// OkItem builds a successful page item.
func OkItem(desc PageDescriptor, img *RasterImage) PageItem {
	return PageItem{Descriptor: &desc, Image: img}
}

// FailedItem builds a failure marker. desc may be nil when the failure is not
// attributable to a specific file or page.
func FailedItem(desc *PageDescriptor, err error) PageItem {
	return PageItem{Descriptor: desc, Err: err}
}

package scan

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
	"github.com/ocrflow/ocr-pipeline/internal/raster"
)

// Config carries the stream's collaborators and settings. The rasterization
// backends are injected here rather than configured through process-wide
// state, so two streams in one process cannot interfere with each other.
type Config struct {
	// PDFDPI is the rasterization resolution for PDF pages. Zero or negative
	// selects the default of 300.
	PDFDPI int
	// Decoder loads standalone image files. Defaults to raster.NewDecoder.
	Decoder domain.ImageDecoder
	// PDF probes and renders PDF documents. Defaults to raster.NewFitzBackend.
	PDF domain.PDFRasterizer
	// Logger receives per-item diagnostics. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultPDFDPI is the rasterization resolution used when none is configured.
const DefaultPDFDPI = 300

// Stream is the lazy page sequence over one scanned root. It is one-pass,
// forward-only and non-restartable: create a new Stream to walk again.
//
// Every pull either decodes one image file or renders one PDF page, so at
// most one page's pixels exist at a time and ownership of each image passes
// to the caller with the returned item. Failures surface as failed items;
// only an unlistable root terminates the sequence (see Err).
type Stream struct {
	root string
	cfg  Config
	log  zerolog.Logger

	started bool
	closed  bool
	scanErr error

	entries []fileEntry
	idx     int

	// per-PDF render cursor
	pdfTotal int // total pages of the current PDF, 0 while unprobed
	pdfPage  int // next 1-based page to render

	cur domain.PageItem
}

// New creates a stream over root. Nothing is touched on disk until the first
// call to Next.
func New(root string, cfg Config) *Stream {
	if cfg.PDFDPI <= 0 {
		cfg.PDFDPI = DefaultPDFDPI
	}
	if cfg.Decoder == nil {
		cfg.Decoder = raster.NewDecoder()
	}
	if cfg.PDF == nil {
		cfg.PDF = raster.NewFitzBackend()
	}
	return &Stream{
		root: root,
		cfg:  cfg,
		log:  cfg.Logger,
	}
}

// Next advances the stream to the next page item. It returns false when the
// sequence is exhausted, the stream is closed, or the root could not be
// scanned at all (check Err for the latter).
func (s *Stream) Next() bool {
	if s.closed {
		return false
	}
	if !s.started {
		s.started = true
		if abs, err := filepath.Abs(s.root); err == nil {
			s.root = abs
		}
		entries, err := collectEntries(s.root, s.log)
		if err != nil {
			s.log.Error().Err(err).Str("root", s.root).Msg("scan aborted")
			s.scanErr = err
			s.closed = true
			return false
		}
		s.entries = entries
	}

	for s.idx < len(s.entries) {
		e := &s.entries[s.idx]
		switch e.kind {
		case entryScanFailure:
			s.idx++
			s.cur = domain.FailedItem(nil, e.err)
			return true
		case entryImage:
			s.idx++
			s.cur = s.decodeImage(e)
			return true
		case entryPDF:
			s.cur = s.nextPDFPage(e)
			return true
		}
	}

	s.cur = domain.PageItem{}
	return false
}

// Item returns the item produced by the last successful call to Next. The
// stream keeps no reference to the image; the caller owns it.
func (s *Stream) Item() domain.PageItem {
	return s.cur
}

// Err returns the terminal scan error, if the root could not be enumerated.
// Per-file and per-page failures are reported as failed items instead.
func (s *Stream) Err() error {
	return s.scanErr
}

// Close abandons the stream. The rasterization backends hold no state between
// pulls, so closing only drops the current item reference and marks the
// stream exhausted. Close is safe to call at any point, including mid-file.
func (s *Stream) Close() error {
	s.closed = true
	s.cur = domain.PageItem{}
	s.entries = nil
	return nil
}

func (s *Stream) decodeImage(e *fileEntry) domain.PageItem {
	desc := e.desc
	desc.Kind = domain.SourceImage
	desc.PageNumber = 1

	img, err := s.cfg.Decoder.Decode(desc.SourcePath)
	if err != nil {
		s.log.Error().Err(err).Str("file", desc.RelativePath).Msg("image decode failed")
		return domain.FailedItem(&desc, err)
	}
	s.log.Debug().Str("file", desc.RelativePath).
		Int("width", img.Width).Int("height", img.Height).
		Msg("image decoded")
	return domain.OkItem(desc, img)
}

// nextPDFPage advances the per-PDF cursor. The first visit probes the page
// count; a failed or empty probe consumes the whole file as one failed item.
// Afterwards each call renders exactly one page, failed pages included, so a
// bad page keeps its position and the remaining pages are still attempted.
func (s *Stream) nextPDFPage(e *fileEntry) domain.PageItem {
	if s.pdfTotal == 0 {
		n, err := s.cfg.PDF.PageCount(e.desc.SourcePath)
		if err == nil && n < 1 {
			err = domain.PDFInfoError(fmt.Sprintf("pdf %s reports no pages", e.desc.RelativePath), nil)
		}
		if err != nil {
			s.idx++
			desc := s.pdfDescriptor(e, 1)
			s.log.Error().Err(err).Str("file", desc.RelativePath).Msg("pdf page-count probe failed")
			return domain.FailedItem(&desc, err)
		}
		s.pdfTotal = n
		s.pdfPage = 1
		s.log.Info().Str("file", e.desc.RelativePath).Int("pages", n).Msg("processing pdf")
	}

	page := s.pdfPage
	desc := s.pdfDescriptor(e, page)

	s.pdfPage++
	if s.pdfPage > s.pdfTotal {
		s.idx++
		s.pdfTotal = 0
		s.pdfPage = 0
	}

	img, err := s.cfg.PDF.RenderPage(desc.SourcePath, s.cfg.PDFDPI, page)
	if err != nil {
		s.log.Error().Err(err).
			Str("file", desc.RelativePath).Int("page", page).
			Msg("pdf page render failed")
		return domain.FailedItem(&desc, err)
	}
	s.log.Debug().Str("file", desc.RelativePath).Int("page", page).Msg("pdf page rendered")
	return domain.OkItem(desc, img)
}

func (s *Stream) pdfDescriptor(e *fileEntry, page int) domain.PageDescriptor {
	desc := e.desc
	desc.Kind = domain.SourcePDFPage
	desc.PageNumber = page
	return desc
}

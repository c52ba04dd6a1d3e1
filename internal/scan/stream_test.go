package scan

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// fakePDF implements domain.PDFRasterizer against stub files, recording every
// render call.
type fakePDF struct {
	pages     map[string]int   // base name -> page count
	countErr  map[string]error // base name -> probe failure
	renderErr map[string]map[int]error

	renderCalls []renderCall
}

type renderCall struct {
	base string
	dpi  int
	page int
}

func (f *fakePDF) PageCount(path string) (int, error) {
	base := filepath.Base(path)
	if err := f.countErr[base]; err != nil {
		return 0, err
	}
	return f.pages[base], nil
}

func (f *fakePDF) RenderPage(path string, dpi, pageNumber int) (*domain.RasterImage, error) {
	base := filepath.Base(path)
	f.renderCalls = append(f.renderCalls, renderCall{base: base, dpi: dpi, page: pageNumber})
	if byPage, ok := f.renderErr[base]; ok {
		if err := byPage[pageNumber]; err != nil {
			return nil, err
		}
	}
	return grayImage(8, 8), nil
}

func grayImage(w, h int) *domain.RasterImage {
	return domain.NewRasterImage(image.NewGray(image.Rect(0, 0, w, h)))
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
}

func writeStub(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))
}

func collect(t *testing.T, s *Stream) []domain.PageItem {
	t.Helper()
	var items []domain.PageItem
	for s.Next() {
		items = append(items, s.Item())
	}
	return items
}

func TestStreamYieldsOneItemPerPage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 10, 10)
	writeStub(t, filepath.Join(dir, "b.pdf"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	pdf := &fakePDF{pages: map[string]int{"b.pdf": 2}}
	s := New(dir, Config{PDF: pdf})
	items := collect(t, s)

	require.NoError(t, s.Err())
	require.Len(t, items, 3)

	assert.True(t, items[0].OK())
	assert.Equal(t, "a.png", items[0].Descriptor.RelativePath)
	assert.Equal(t, domain.SourceImage, items[0].Descriptor.Kind)
	assert.Equal(t, 1, items[0].Descriptor.PageNumber)
	assert.Equal(t, 10, items[0].Image.Width)

	for i, page := range []int{1, 2} {
		item := items[1+i]
		assert.True(t, item.OK())
		assert.Equal(t, "b.pdf", item.Descriptor.RelativePath)
		assert.Equal(t, domain.SourcePDFPage, item.Descriptor.Kind)
		assert.Equal(t, page, item.Descriptor.PageNumber)
	}
}

func TestStreamSingleImage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 10, 10)

	s := New(dir, Config{})
	items := collect(t, s)

	require.Len(t, items, 1)
	item := items[0]
	assert.True(t, item.OK())
	assert.Equal(t, domain.SourceImage, item.Descriptor.Kind)
	assert.Equal(t, 1, item.Descriptor.PageNumber)
	assert.Equal(t, filepath.Base(dir), item.Descriptor.InputRootName)
	assert.Equal(t, "a.png", item.Descriptor.OriginalFilename)
}

func TestStreamFailedPageKeepsPosition(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, filepath.Join(dir, "b.pdf"))

	pdf := &fakePDF{
		pages:     map[string]int{"b.pdf": 3},
		renderErr: map[string]map[int]error{"b.pdf": {2: fmt.Errorf("render exploded")}},
	}
	s := New(dir, Config{PDF: pdf})
	items := collect(t, s)

	require.Len(t, items, 3)
	assert.True(t, items[0].OK())
	assert.Equal(t, 1, items[0].Descriptor.PageNumber)

	assert.False(t, items[1].OK())
	require.NotNil(t, items[1].Descriptor)
	assert.Equal(t, 2, items[1].Descriptor.PageNumber)
	assert.Equal(t, "b.pdf", items[1].Descriptor.RelativePath)

	assert.True(t, items[2].OK())
	assert.Equal(t, 3, items[2].Descriptor.PageNumber)
}

func TestStreamCorruptPDFDoesNotAffectOthers(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, filepath.Join(dir, "bad.pdf"))
	writeStub(t, filepath.Join(dir, "good.pdf"))

	pdf := &fakePDF{
		pages:    map[string]int{"good.pdf": 2},
		countErr: map[string]error{"bad.pdf": domain.PDFInfoError("broken xref", nil)},
	}
	s := New(dir, Config{PDF: pdf})
	items := collect(t, s)

	require.Len(t, items, 3)

	assert.False(t, items[0].OK())
	assert.Equal(t, "bad.pdf", items[0].Descriptor.RelativePath)
	assert.Equal(t, domain.ErrorKindPDFInfo, domain.ErrorKindOf(items[0].Err))

	assert.True(t, items[1].OK())
	assert.True(t, items[2].OK())
	assert.Equal(t, "good.pdf", items[1].Descriptor.RelativePath)
}

func TestStreamZeroPagePDFFailsWithoutRender(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, filepath.Join(dir, "empty.pdf"))

	pdf := &fakePDF{pages: map[string]int{"empty.pdf": 0}}
	s := New(dir, Config{PDF: pdf})
	items := collect(t, s)

	require.Len(t, items, 1)
	assert.False(t, items[0].OK())
	assert.Empty(t, pdf.renderCalls)
}

func TestStreamRendersExactlyOnePageAtATime(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, filepath.Join(dir, "doc.pdf"))

	pdf := &fakePDF{pages: map[string]int{"doc.pdf": 4}}
	s := New(dir, Config{PDF: pdf, PDFDPI: 150})
	items := collect(t, s)

	require.Len(t, items, 4)
	require.Len(t, pdf.renderCalls, 4)
	for i, call := range pdf.renderCalls {
		assert.Equal(t, i+1, call.page, "pages must be rendered in ascending order, once each")
		assert.Equal(t, 150, call.dpi)
	}
}

func TestStreamDefaultDPI(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, filepath.Join(dir, "doc.pdf"))

	pdf := &fakePDF{pages: map[string]int{"doc.pdf": 1}}
	s := New(dir, Config{PDF: pdf})
	collect(t, s)

	require.Len(t, pdf.renderCalls, 1)
	assert.Equal(t, DefaultPDFDPI, pdf.renderCalls[0].dpi)
}

func TestStreamIsNotRestartable(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)
	writeStub(t, filepath.Join(dir, "b.pdf"))

	newStream := func() *Stream {
		return New(dir, Config{PDF: &fakePDF{pages: map[string]int{"b.pdf": 2}}})
	}

	first := collect(t, newStream())
	second := collect(t, newStream())

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i].Descriptor, *second[i].Descriptor)
	}

	// An exhausted stream stays exhausted.
	s := newStream()
	collect(t, s)
	assert.False(t, s.Next())
}

func TestStreamDescriptorUniqueness(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)
	writePNG(t, filepath.Join(dir, "sub", "a.png"), 4, 4)
	writeStub(t, filepath.Join(dir, "doc.pdf"))

	pdf := &fakePDF{pages: map[string]int{"doc.pdf": 3}}
	s := New(dir, Config{PDF: pdf})
	items := collect(t, s)

	seen := make(map[string]bool)
	for _, item := range items {
		require.True(t, item.OK())
		key := item.Descriptor.Key()
		assert.False(t, seen[key], "duplicate descriptor key %s", key)
		seen[key] = true
	}
	assert.Len(t, seen, 5)
}

func TestStreamMissingRoot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist"), Config{})

	assert.False(t, s.Next())
	require.Error(t, s.Err())
	assert.Equal(t, domain.ErrorKindScan, domain.ErrorKindOf(s.Err()))
}

func TestStreamUnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	writePNG(t, filepath.Join(locked, "hidden.png"), 4, 4)
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s := New(dir, Config{})
	items := collect(t, s)
	assert.NoError(t, s.Err())

	require.Len(t, items, 2)
	assert.True(t, items[0].OK())
	assert.Equal(t, "a.png", items[0].Descriptor.RelativePath)

	assert.False(t, items[1].OK())
	assert.Nil(t, items[1].Descriptor, "scan-level failures carry no descriptor")
	assert.Equal(t, domain.ErrorKindScan, domain.ErrorKindOf(items[1].Err))
}

func TestStreamCorruptImageIsIsolated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not a png"), 0o644))
	writePNG(t, filepath.Join(dir, "good.png"), 4, 4)

	s := New(dir, Config{})
	items := collect(t, s)

	require.Len(t, items, 2)
	assert.False(t, items[0].OK())
	require.NotNil(t, items[0].Descriptor)
	assert.Equal(t, "bad.png", items[0].Descriptor.RelativePath)
	assert.Equal(t, domain.ErrorKindDecode, domain.ErrorKindOf(items[0].Err))

	assert.True(t, items[1].OK())
	assert.Equal(t, "good.png", items[1].Descriptor.RelativePath)
}

func TestStreamExtensionsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "UPPER.PNG"), 4, 4)

	s := New(dir, Config{})
	items := collect(t, s)

	require.Len(t, items, 1)
	assert.True(t, items[0].OK())
}

func TestStreamCloseMidStream(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, filepath.Join(dir, "doc.pdf"))

	pdf := &fakePDF{pages: map[string]int{"doc.pdf": 10}}
	s := New(dir, Config{PDF: pdf})

	require.True(t, s.Next())
	require.NoError(t, s.Close())

	assert.False(t, s.Next())
	assert.Len(t, pdf.renderCalls, 1, "abandoning the stream must stop rendering")
}

func TestStreamEmptyDirectory(t *testing.T) {
	s := New(t.TempDir(), Config{})
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

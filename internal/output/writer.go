// Package output persists per-page extraction results: one JSON record per
// page, plus an optional SQLite index of run outcomes.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// DocumentInfo identifies the source of one extraction record.
type DocumentInfo struct {
	InputDirectory   string `json:"input_directory"`
	RelativePath     string `json:"relative_path"`
	OriginalFilename string `json:"original_filename"`
	SourceType       string `json:"source_type"`
	PageNumber       int    `json:"page_number"`
}

// ProcessingInfo records how the extraction was produced.
type ProcessingInfo struct {
	TimestampUTC string  `json:"timestamp_utc"`
	DurationSec  float64 `json:"duration_sec"`
	OCRLanguage  string  `json:"ocr_engine_lang"`
	OCREngine    string  `json:"ocr_engine"`
}

// Content holds the extracted text.
type Content struct {
	Text string `json:"text"`
}

// Record is the persisted JSON envelope for one page.
type Record struct {
	Document   DocumentInfo   `json:"document_info"`
	Processing ProcessingInfo `json:"processing_info"`
	Content    Content        `json:"content"`
}

// NewRecord assembles a record from a page descriptor and its extracted text.
func NewRecord(desc domain.PageDescriptor, cleanedText, engine, language string, duration time.Duration) Record {
	return Record{
		Document: DocumentInfo{
			InputDirectory:   desc.InputRootName,
			RelativePath:     desc.RelativePath,
			OriginalFilename: desc.OriginalFilename,
			SourceType:       string(desc.Kind),
			PageNumber:       desc.PageNumber,
		},
		Processing: ProcessingInfo{
			TimestampUTC: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
			DurationSec:  float64(duration.Milliseconds()) / 1000.0,
			OCRLanguage:  language,
			OCREngine:    engine,
		},
		Content: Content{Text: cleanedText},
	}
}

// Writer saves records as indented JSON files under a single output
// directory, named after the sanitized source filename and page number.
type Writer struct {
	dir string
}

// NewWriter creates a writer targeting dir. The directory is created on the
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write persists the record and returns the path of the written file.
func (w *Writer) Write(rec Record) (string, error) {
	name := fmt.Sprintf("%s_page_%d.json",
		SanitizeFilename(rec.Document.OriginalFilename), rec.Document.PageNumber)
	path := filepath.Join(w.dir, name)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", domain.OutputError(fmt.Sprintf("create output directory %s", w.dir), err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", domain.OutputError(fmt.Sprintf("encode record for %s", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", domain.OutputError(fmt.Sprintf("write %s", path), err)
	}
	return path, nil
}

var (
	unsafeChars     = regexp.MustCompile(`[^\p{L}\p{N}_.\-]+`)
	repeatedUnders  = regexp.MustCompile(`_+`)
	trimUnderscores = regexp.MustCompile(`^_+|_+$`)
)

// SanitizeFilename turns an arbitrary source filename into a safe output
// file base name: the extension is dropped and anything outside letters,
// digits, underscores, dots and dashes collapses to single underscores.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed_file"
	}
	base := filepath.Base(filename)
	name := base[:len(base)-len(filepath.Ext(base))]

	name = unsafeChars.ReplaceAllString(name, "_")
	name = repeatedUnders.ReplaceAllString(name, "_")
	name = trimUnderscores.ReplaceAllString(name, "")
	if name == "" {
		return "unnamed_file"
	}
	return name
}

// Package scan implements the document ingestion core: it walks an input
// directory, classifies supported documents, and exposes them as a lazy
// per-page stream of raster images.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".tiff": {},
	".tif":  {},
}

var pdfExtensions = map[string]struct{}{
	".pdf": {},
}

type entryKind int

const (
	entryImage entryKind = iota
	entryPDF
	entryScanFailure
)

// fileEntry is one discovered unit of the walk: a supported file, or a marker
// for a directory that could not be enumerated.
type fileEntry struct {
	kind    entryKind
	sortKey string
	desc    domain.PageDescriptor // unset for entryScanFailure
	err     error                 // set for entryScanFailure
}

// collectEntries walks root recursively, classifying every regular file by
// extension. Unsupported extensions are skipped silently. Directories that
// cannot be enumerated become scan-failure entries; only an unlistable root
// aborts the walk. Entries are sorted by relative path so that runs over an
// unchanged tree are reproducible.
func collectEntries(root string, log zerolog.Logger) ([]fileEntry, error) {
	rootName := filepath.Base(root)

	var entries []fileEntry
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Error().Err(err).Str("path", path).Msg("cannot enumerate directory entry")
			entries = append(entries, fileEntry{
				kind:    entryScanFailure,
				sortKey: relativeOrBase(root, path, log),
				err:     domain.ScanError(fmt.Sprintf("enumerate %s", path), err),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		var kind entryKind
		if _, ok := imageExtensions[ext]; ok {
			kind = entryImage
		} else if _, ok := pdfExtensions[ext]; ok {
			kind = entryPDF
		} else {
			return nil
		}

		rel := relativeOrBase(root, path, log)
		desc := domain.PageDescriptor{
			InputRootName:    rootName,
			RelativePath:     rel,
			OriginalFilename: d.Name(),
			SourcePath:       path,
		}
		entries = append(entries, fileEntry{kind: kind, sortKey: rel, desc: desc})
		return nil
	})
	if walkErr != nil {
		return nil, domain.ScanError(fmt.Sprintf("scan root %s", root), walkErr)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].sortKey < entries[j].sortKey
	})

	log.Info().Str("root", root).Int("files", len(entries)).Msg("scan complete")
	return entries, nil
}

// relativeOrBase computes path relative to root, degrading to the bare
// filename when the relative path cannot be computed.
func relativeOrBase(root, path string, log zerolog.Logger) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		log.Warn().
			Err(domain.PathError(fmt.Sprintf("relative path of %s from %s", path, root), err)).
			Msg("falling back to bare filename")
		return filepath.Base(path)
	}
	return rel
}

// Package text normalizes raw OCR output for readability.
package text

import (
	"regexp"
	"strings"
)

var multiBlank = regexp.MustCompile(`\n{2,}`)

// Clean normalizes raw OCR text: it drops the Unicode replacement character,
// strips and collapses whitespace within each line, removes empty lines, and
// collapses runs of blank lines to a single one.
func Clean(raw string) string {
	cleaned := strings.ReplaceAll(raw, "�", "")

	lines := strings.Split(cleaned, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	cleaned = strings.Join(out, "\n")

	cleaned = multiBlank.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

package ingestion

import (
	"path/filepath"
	"strings"
)

// punctuation is the ASCII punctuation set replaced by NormalizeName.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// NormalizeName turns a display name into the corpus key prefix by replacing
// every ASCII punctuation character with an underscore, so "report.pdf"
// becomes "report_pdf". Any directory part is discarded first. An empty
// name becomes "document".
func NormalizeName(displayName string) string {
	name := strings.TrimSpace(filepath.Base(filepath.ToSlash(displayName)))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	return strings.Map(func(r rune) rune {
		if r < 0x80 && strings.ContainsRune(punctuation, r) {
			return '_'
		}
		return r
	}, name)
}

// docTypeByExtension maps file extensions to a coarse document label.
var docTypeByExtension = map[string]string{
	".pdf":      "pdf",
	".md":       "markdown",
	".markdown": "markdown",
	".txt":      "text",
	".text":     "text",
}

// DocumentMetadata returns best-effort metadata derived from the display
// name: the original file name, a human title and the document type. The
// extractor's own keys take precedence when the two overlap.
//
// Examples:
//
//	"reports/Q3_findings.pdf" → title "Q3 findings", doc_type "pdf"
//	"notes.md"                → title "notes",       doc_type "markdown"
func DocumentMetadata(displayName string) map[string]string {
	base := filepath.Base(filepath.ToSlash(strings.TrimSpace(displayName)))
	ext := strings.ToLower(filepath.Ext(base))

	docType, ok := docTypeByExtension[ext]
	if !ok {
		docType = "unknown"
	}

	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = strings.Join(strings.FieldsFunc(title, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
	if title == "" {
		title = "document"
	}

	return map[string]string{
		"file_name": base,
		"title":     title,
		"doc_type":  docType,
	}
}

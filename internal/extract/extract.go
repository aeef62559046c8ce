// Package extract turns uploaded document bytes into page-level text
// segments. PDFs are read page by page; plain text and Markdown are passed
// through as a single segment.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/rag"
)

// Kind classifies an uploaded document.
type Kind string

const (
	// KindPDF is a Portable Document Format file.
	KindPDF Kind = "pdf"
	// KindText is UTF-8 plain text.
	KindText Kind = "text"
	// KindMarkdown is UTF-8 Markdown, indexed as plain text.
	KindMarkdown Kind = "markdown"
	// KindUnknown is anything else.
	KindUnknown Kind = "unknown"
)

// Segment is one page (or the whole body, for unpaged formats) of text.
type Segment struct {
	// Text is the extracted text.
	Text string

	// Source is the display name of the document.
	Source string

	// Page is the 1-based page number, or 0 for unpaged formats.
	Page int

	// Metadata carries extraction details propagated to every passage.
	Metadata map[string]string
}

// Extractor converts raw document bytes into ordered segments.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor { return &Extractor{} }

// DetectKind infers the document kind from the file extension, falling back
// to content sniffing when the extension is missing or unknown.
func DetectKind(name string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".txt", ".text", ".log", ".csv":
		return KindText
	case ".md", ".markdown":
		return KindMarkdown
	}

	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return KindPDF
	}
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "text/plain") && utf8.Valid(data) {
		return KindText
	}
	return KindUnknown
}

// Extract returns the document's text segments in reading order. A document
// that yields no text at all is an error. All failures are *rag.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) ([]Segment, error) {
	if len(data) == 0 {
		return nil, &rag.ExtractionError{Name: name, Err: fmt.Errorf("document is empty")}
	}

	kind := DetectKind(name, data)
	var (
		segs []Segment
		err  error
	)
	switch kind {
	case KindPDF:
		segs, err = extractPDF(name, data)
	case KindText, KindMarkdown:
		segs, err = extractText(name, data)
	default:
		err = fmt.Errorf("unsupported document type")
	}
	if err != nil {
		return nil, &rag.ExtractionError{Name: name, Err: err}
	}

	for i := range segs {
		if segs[i].Metadata == nil {
			segs[i].Metadata = map[string]string{}
		}
		segs[i].Metadata["kind"] = string(kind)
	}

	logging.FromContext(ctx).Debug("document extracted",
		slog.String("document", name),
		slog.String("kind", string(kind)),
		slog.Int("segments", len(segs)),
	)
	return segs, nil
}

func extractText(name string, data []byte) ([]Segment, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("text is not valid UTF-8")
	}
	text := string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text found")
	}
	return []Segment{{Text: text, Source: name}}, nil
}

func extractPDF(name string, data []byte) (segs []Segment, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			segs, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		segs = append(segs, Segment{
			Text:     text,
			Source:   name,
			Page:     i,
			Metadata: map[string]string{"total_pages": strconv.Itoa(total)},
		})
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("no text found in %d pages", total)
	}
	return segs, nil
}

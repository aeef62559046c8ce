// Package chunker splits extracted document text into overlapping passages
// sized for embedding. Splitting is recursive: the coarsest separator present
// in the text is tried first ("\n\n", then "\n", sentence punctuation, space)
// and raw character cuts are the last resort.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/54b3r/recall-go/internal/extract"
	"github.com/54b3r/recall-go/internal/rag"
)

// Defaults used when Config leaves a field unset.
const (
	DefaultChunkSize    = 400
	DefaultChunkOverlap = 300
)

// DefaultSeparators is the separator hierarchy, coarsest first. The empty
// string means "split between characters".
var DefaultSeparators = []string{"\n\n", "\n", ".", "?", "!", " ", ""}

// Config controls passage sizing.
type Config struct {
	// ChunkSize is the maximum passage length in runes (default: 400).
	ChunkSize int

	// ChunkOverlap is the maximum number of runes carried from the end of one
	// passage into the start of the next (default: 300). Must be less than
	// ChunkSize.
	ChunkOverlap int

	// Separators overrides DefaultSeparators.
	Separators []string
}

// Recursive is a recursive character splitter.
type Recursive struct {
	size       int
	overlap    int
	separators []string
}

// New returns a Recursive splitter. Zero or invalid values in cfg fall back
// to the defaults; an overlap that is not smaller than the size is clamped.
func New(cfg Config) *Recursive {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap == 0 && cfg.ChunkSize == 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size - 1
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return &Recursive{size: size, overlap: overlap, separators: seps}
}

// Size returns the configured maximum passage length.
func (c *Recursive) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Recursive) Overlap() int { return c.overlap }

// Split cuts every segment into passages. Passages never cross segment
// boundaries; each inherits its segment's source, page and metadata and
// records its rune offset within the segment.
func (c *Recursive) Split(segments []extract.Segment) []rag.Passage {
	var out []rag.Passage
	for _, seg := range segments {
		searchFrom := 0
		for _, text := range c.SplitText(seg.Text) {
			offset := searchFrom
			if i := strings.Index(seg.Text[searchFrom:], text); i >= 0 {
				offset = searchFrom + i
				searchFrom = offset + 1
			}
			out = append(out, rag.Passage{
				Content:  text,
				Source:   seg.Source,
				Page:     seg.Page,
				Offset:   utf8.RuneCountInString(seg.Text[:offset]),
				Metadata: copyMeta(seg.Metadata),
			})
		}
	}
	return out
}

// SplitText cuts text into passages of at most Size runes.
func (c *Recursive) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *Recursive) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, piece := range splitKeepingSeparator(text, sep) {
		if runeLen(piece) < c.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge joins small pieces greedily up to the chunk size, carrying trailing
// pieces worth at most the overlap into the next passage.
func (c *Recursive) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.size && len(current) > 0 {
			if s := join(current); s != "" {
				out = append(out, s)
			}
			for total > c.overlap || (total+n > c.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if s := join(current); s != "" {
		out = append(out, s)
	}
	return out
}

// splitKeepingSeparator splits text on sep and re-attaches each separator to
// the start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/recall-go/internal/extract"
)

// sentences builds n distinct sentences of roughly 60 runes each.
func sentences(n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat(string(rune('a'+i%26)), 3))
		b.WriteString(" talks about a topic in some detail here.")
	}
	return b.String()
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	assert.Equal(t, DefaultChunkSize, c.Size())
	assert.Equal(t, DefaultChunkOverlap, c.Overlap())

	c = New(Config{ChunkSize: 100, ChunkOverlap: 150})
	assert.Equal(t, 99, c.Overlap(), "overlap must be clamped below size")

	c = New(Config{ChunkSize: 100})
	assert.Zero(t, c.Overlap(), "explicit size with zero overlap means no overlap")
}

func TestSplitText_ShortTextIsOnePassage(t *testing.T) {
	t.Parallel()

	got := New(Config{}).SplitText("  A short note.  ")
	assert.Equal(t, []string{"A short note."}, got)
}

func TestSplitText_EmptyText(t *testing.T) {
	t.Parallel()

	assert.Empty(t, New(Config{}).SplitText(""))
	assert.Empty(t, New(Config{}).SplitText("   \n\n  "))
}

func TestSplitText_MaxLength(t *testing.T) {
	t.Parallel()

	text := sentences(40) + "\n\n" + sentences(25) + "\n" + strings.Repeat("x", 1000)
	c := New(Config{ChunkSize: 400, ChunkOverlap: 300})

	passages := c.SplitText(text)
	require.NotEmpty(t, passages)
	for i, p := range passages {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 400, "passage %d too long", i)
		assert.NotEmpty(t, p)
	}
}

func TestSplitText_CharacterOverlapIsExact(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 1000 {
		b.WriteRune(rune('a' + i%26))
	}
	text := b.String()

	c := New(Config{ChunkSize: 400, ChunkOverlap: 300})
	passages := c.SplitText(text)
	require.Greater(t, len(passages), 1)

	for i := 0; i+1 < len(passages); i++ {
		cur, next := passages[i], passages[i+1]
		assert.Len(t, cur, 400)
		assert.Equal(t, cur[len(cur)-300:], next[:300], "passage %d should carry 300 runes into %d", i, i+1)
	}
	assert.True(t, strings.HasSuffix(text, passages[len(passages)-1]))
}

func TestSplitText_SentenceOverlapBounded(t *testing.T) {
	t.Parallel()

	text := sentences(30)
	c := New(Config{ChunkSize: 400, ChunkOverlap: 300})
	passages := c.SplitText(text)
	require.Greater(t, len(passages), 1)

	for i := 0; i+1 < len(passages); i++ {
		ov := overlap(passages[i], passages[i+1])
		assert.Positive(t, ov, "passages %d and %d should overlap", i, i+1)
		assert.LessOrEqual(t, ov, 300)
	}
}

func TestSplitText_PrefersParagraphBoundaries(t *testing.T) {
	t.Parallel()

	para1 := strings.Repeat("alpha ", 30)
	para2 := strings.Repeat("beta ", 30)
	c := New(Config{ChunkSize: 200, ChunkOverlap: 0})

	got := c.SplitText(para1 + "\n\n" + para2)
	require.Len(t, got, 2)
	assert.Equal(t, strings.TrimSpace(para1), got[0])
	assert.Equal(t, strings.TrimSpace(para2), got[1])
}

func TestSplit_PropagatesMetadataAndPages(t *testing.T) {
	t.Parallel()

	segs := []extract.Segment{
		{Text: sentences(12), Source: "report.pdf", Page: 1, Metadata: map[string]string{"kind": "pdf"}},
		{Text: sentences(12), Source: "report.pdf", Page: 2, Metadata: map[string]string{"kind": "pdf"}},
	}
	c := New(Config{})
	passages := c.Split(segs)
	require.NotEmpty(t, passages)

	pages := map[int]int{}
	for _, p := range passages {
		assert.Equal(t, "report.pdf", p.Source)
		assert.Equal(t, "pdf", p.Metadata["kind"])
		pages[p.Page]++
	}
	assert.Positive(t, pages[1])
	assert.Positive(t, pages[2])

	// passages never cross a page: page 1 passages all come from page 1 text.
	for _, p := range passages {
		assert.Contains(t, segs[p.Page-1].Text, p.Content)
	}
}

func TestSplit_Offsets(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("é", 10) + "\n\n" + strings.Repeat("z", 10)
	c := New(Config{ChunkSize: 12, ChunkOverlap: 0})

	passages := c.Split([]extract.Segment{{Text: text, Source: "t"}})
	require.Len(t, passages, 2)
	assert.Equal(t, 0, passages[0].Offset)
	assert.Equal(t, 12, passages[1].Offset)
}

func TestSplit_MetadataIsCopied(t *testing.T) {
	t.Parallel()

	meta := map[string]string{"kind": "text"}
	passages := New(Config{ChunkSize: 10, ChunkOverlap: 0}).Split([]extract.Segment{
		{Text: "one two three four five six", Source: "s", Metadata: meta},
	})
	require.Greater(t, len(passages), 1)

	passages[0].Metadata["kind"] = "changed"
	assert.Equal(t, "text", meta["kind"])
	assert.Equal(t, "text", passages[1].Metadata["kind"])
}

// overlap returns the length of the longest suffix of a that prefixes b.
func overlap(a, b string) int {
	for n := min(len(a), len(b)); n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/54b3r/recall-go/internal/rag"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func doc(id string, seq int, content string) rag.Document {
	return rag.Document{ID: id, Seq: seq, Passage: rag.Passage{Content: content, Source: "report.pdf", Page: 1}}
}

func Test_Store_UpsertAndAll(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	docs := []rag.Document{doc("r_1", 1, "second"), doc("r_0", 0, "first")}
	docs[0].Metadata = map[string]string{"kind": "pdf"}
	if err := s.Upsert(ctx, docs, [][]float32{{0, 1}, {1, 0}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2 documents, got %d", len(all))
	}
	if all[0].ID != "r_0" || all[1].ID != "r_1" {
		t.Errorf("want seq order r_0, r_1; got %s, %s", all[0].ID, all[1].ID)
	}
	if all[1].Metadata["kind"] != "pdf" {
		t.Errorf("metadata lost: %v", all[1].Metadata)
	}
	if all[0].Source != "report.pdf" || all[0].Page != 1 {
		t.Errorf("passage fields lost: %+v", all[0])
	}
}

func Test_Store_UpsertLengthMismatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.Upsert(context.Background(), []rag.Document{doc("a", 0, "x")}, nil); err == nil {
		t.Fatal("expected error for mismatched embeddings")
	}
}

func Test_Store_IDsAndDelete(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	docs := []rag.Document{doc("d_0", 0, "a"), doc("d_1", 1, "b"), doc("d_2", 2, "c")}
	if err := s.Upsert(ctx, docs, [][]float32{{1}, {1}, {1}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := s.Delete(ctx, []string{"d_0", "d_2", "missing"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "d_1" {
		t.Errorf("want [d_1], got %v", ids)
	}
}

func Test_Store_SearchRanksByCosine(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	docs := []rag.Document{doc("x_0", 0, "east"), doc("x_1", 1, "north"), doc("x_2", 2, "north-east")}
	vecs := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	if err := s.Upsert(ctx, docs, vecs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{0, 2}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d", len(got))
	}
	if got[0].ID != "x_1" || got[1].ID != "x_2" {
		t.Errorf("want x_1, x_2; got %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Score < 0.999 {
		t.Errorf("want score ~1 for identical direction, got %f", got[0].Score)
	}
}

func Test_Store_SearchEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	got, err := s.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want no results, got %d", len(got))
	}
}

func Test_Store_ReplaceAll(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	first := []rag.Document{doc("a_0", 0, "a"), doc("a_1", 1, "b"), doc("a_2", 2, "c")}
	if err := s.ReplaceAll(ctx, first, [][]float32{{1}, {1}, {1}}); err != nil {
		t.Fatalf("replace first: %v", err)
	}
	second := []rag.Document{doc("b_0", 0, "z")}
	if err := s.ReplaceAll(ctx, second, [][]float32{{1}}); err != nil {
		t.Fatalf("replace second: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("want 1 passage after replace, got %d", n)
	}
}

func Test_Store_ReplaceAllRollsBackOnError(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, []rag.Document{doc("keep_0", 0, "k")}, [][]float32{{1}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.ReplaceAll(ctx, []rag.Document{doc("bad_0", 0, "b")}, nil); err == nil {
		t.Fatal("expected error for mismatched embeddings")
	}

	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "keep_0" {
		t.Errorf("want corpus unchanged [keep_0], got %v", ids)
	}
}

func Test_Store_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Upsert(ctx, []rag.Document{doc("p_0", 0, "persisted")}, [][]float32{{0.5, -0.25}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Search(ctx, []float32{0.5, -0.25}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Content != "persisted" {
		t.Fatalf("want persisted passage, got %+v", got)
	}
}

func Test_VectorRoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 1.5, -3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: want %v, got %v", i, in[i], out[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func Test_Store_WithIndex(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	idx, err := rag.NewIndex(s, constEmbedder{})
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	ps := []rag.Passage{{Content: "one"}, {Content: "two"}}
	n, err := idx.ReplaceAll(ctx, ps, [][]float32{{1, 0}, {0, 1}}, "notes_txt")
	if err != nil {
		t.Fatalf("replace all: %v", err)
	}
	if n != 2 {
		t.Errorf("want 2 stored, got %d", n)
	}
	res, err := idx.Query(ctx, "anything", 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Len() != 1 || res.Documents[0].ID != "notes_txt_0" {
		t.Errorf("want notes_txt_0 first, got %+v", res.Documents)
	}
}

// constEmbedder embeds every text as the unit x vector.
type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// Package store provides the SQLite-backed local index collection. It holds
// the passages and embedding vectors of the single active corpus in a file at
// a fixed path, so the index survives server restarts. Similarity search is a
// brute-force cosine scan, which is adequate for one document's passages.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/recall-go/internal/rag"
)

// SQLiteStore is a rag.VectorStore backed by a local SQLite database.
// It also implements rag.Replacer so corpus replacement is atomic.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

var (
	_ rag.VectorStore = (*SQLiteStore)(nil)
	_ rag.Replacer    = (*SQLiteStore)(nil)
)

// DefaultDBPath returns the default path for the index database.
// It resolves to ~/.recall/index.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".recall")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "index.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("store: create dir for %s: %w", path, err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection: a single writer, and ":memory:" databases live per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS passages (
    id          TEXT    PRIMARY KEY,
    seq         INTEGER NOT NULL,
    source      TEXT    NOT NULL,
    content     TEXT    NOT NULL,
    page        INTEGER NOT NULL,
    char_offset INTEGER NOT NULL,
    metadata    TEXT    NOT NULL,  -- JSON object
    embedding   BLOB    NOT NULL   -- little-endian float32
);
CREATE INDEX IF NOT EXISTS idx_passages_seq ON passages (seq);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IDs lists every stored passage id in sequence order.
func (s *SQLiteStore) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM passages ORDER BY seq, id`)
	if err != nil {
		return nil, fmt.Errorf("store: ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ids rows: %w", err)
	}
	return ids, nil
}

// Delete removes passages by id. Unknown ids are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	return deleteIDs(ctx, s.db, ids)
}

func deleteIDs(ctx context.Context, ex execer, ids []string) error {
	for _, id := range ids {
		if _, err := ex.ExecContext(ctx, `DELETE FROM passages WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete %s: %w", id, err)
		}
	}
	return nil
}

// Upsert stores documents with their embeddings, replacing equal ids.
func (s *SQLiteStore) Upsert(ctx context.Context, docs []rag.Document, embeddings [][]float32) error {
	return upsert(ctx, s.db, docs, embeddings)
}

func upsert(ctx context.Context, ex execer, docs []rag.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("store: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	const q = `
INSERT INTO passages (id, seq, source, content, page, char_offset, metadata, embedding)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    seq = excluded.seq, source = excluded.source, content = excluded.content,
    page = excluded.page, char_offset = excluded.char_offset, metadata = excluded.metadata,
    embedding = excluded.embedding`

	for i, d := range docs {
		meta := d.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("store: encode metadata for %s: %w", d.ID, err)
		}
		_, err = ex.ExecContext(ctx, q,
			d.ID, d.Seq, d.Source, d.Content, d.Page, d.Offset, string(metaJSON), encodeVector(embeddings[i]))
		if err != nil {
			return fmt.Errorf("store: upsert %s: %w", d.ID, err)
		}
	}
	return nil
}

// ReplaceAll swaps the whole corpus inside one transaction.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, docs []rag.Document, embeddings [][]float32) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	if err = upsert(ctx, tx, docs, embeddings); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Search ranks every stored passage by cosine similarity to queryEmbedding.
func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]rag.Document, error) {
	docs, vectors, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return rag.RankByCosine(queryEmbedding, docs, vectors, topK), nil
}

// All returns every stored document ordered by seq.
func (s *SQLiteStore) All(ctx context.Context) ([]rag.Document, error) {
	docs, _, err := s.load(ctx, false)
	return docs, err
}

// Count returns the number of stored passages.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Ping checks that the database answers.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// load reads every row, optionally decoding the embedding column.
func (s *SQLiteStore) load(ctx context.Context, withVectors bool) ([]rag.Document, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, source, content, page, char_offset, metadata, embedding FROM passages ORDER BY seq, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	var (
		docs    []rag.Document
		vectors [][]float32
	)
	for rows.Next() {
		var (
			d        rag.Document
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&d.ID, &d.Seq, &d.Source, &d.Content, &d.Page, &d.Offset, &metaJSON, &blob); err != nil {
			return nil, nil, fmt.Errorf("store: load scan: %w", err)
		}
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &d.Metadata); err != nil {
				return nil, nil, fmt.Errorf("store: decode metadata for %s: %w", d.ID, err)
			}
		}
		docs = append(docs, d)
		if withVectors {
			v, err := decodeVector(blob)
			if err != nil {
				return nil, nil, fmt.Errorf("store: decode embedding for %s: %w", d.ID, err)
			}
			vectors = append(vectors, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: load rows: %w", err)
	}
	return docs, vectors, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

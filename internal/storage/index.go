// Package storage persists the retrieval corpus in SQLite with FTS5
// full-text search over document bodies.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/klauspost/compress/zstd"

	"librarian/internal/logging"
	"librarian/internal/retrieval"
)

// DocumentIndex stores corpus documents with compressed bodies and an
// FTS5 index for ranked search.
type DocumentIndex struct {
	db      *sql.DB
	logger  *logging.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewDocumentIndex creates the index schema if needed.
func NewDocumentIndex(db *DB, logger *logging.Logger) (*DocumentIndex, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	idx := &DocumentIndex{
		db:      db.Conn(),
		logger:  logger,
		encoder: encoder,
		decoder: decoder,
	}
	if err := idx.initSchema(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *DocumentIndex) initSchema() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			content BLOB NOT NULL,
			indexed_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	_, err = idx.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED,
			body
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create documents_fts table: %w", err)
	}
	return nil
}

// Put upserts documents in a single transaction. The plain body goes to
// the FTS table; the stored copy is zstd compressed.
func (idx *DocumentIndex) Put(ctx context.Context, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, content) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, indexed_at = datetime('now')
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer docStmt.Close()

	for _, doc := range docs {
		compressed := idx.encoder.EncodeAll([]byte(doc.Content), nil)
		if _, err := docStmt.ExecContext(ctx, doc.ID, compressed); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents_fts WHERE id = ?", doc.ID); err != nil {
			return fmt.Errorf("failed to clear fts row for %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents_fts (id, body) VALUES (?, ?)", doc.ID, doc.Content); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns a stored document by id.
func (idx *DocumentIndex) Get(ctx context.Context, id string) (retrieval.Document, bool, error) {
	var compressed []byte
	err := idx.db.QueryRowContext(ctx,
		"SELECT content FROM documents WHERE id = ?", id).Scan(&compressed)
	if err == sql.ErrNoRows {
		return retrieval.Document{}, false, nil
	}
	if err != nil {
		return retrieval.Document{}, false, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	content, err := idx.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return retrieval.Document{}, false, fmt.Errorf("failed to decompress document %s: %w", id, err)
	}
	return retrieval.Document{ID: id, Content: string(content)}, true, nil
}

// Delete removes a document from storage and the FTS index.
func (idx *DocumentIndex) Delete(ctx context.Context, id string) error {
	if _, err := idx.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if _, err := idx.db.ExecContext(ctx, "DELETE FROM documents_fts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete fts row for %s: %w", id, err)
	}
	return nil
}

// Documents returns every stored document, ordered by id. Intended for
// corpus loads; large indexes should prefer Search.
func (idx *DocumentIndex) Documents(ctx context.Context) ([]retrieval.Document, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT id, content FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := make([]retrieval.Document, 0)
	for rows.Next() {
		var id string
		var compressed []byte
		if err := rows.Scan(&id, &compressed); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		content, err := idx.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress document %s: %w", id, err)
		}
		docs = append(docs, retrieval.Document{ID: id, Content: string(content)})
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents.
func (idx *DocumentIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Search runs a ranked FTS5 query and returns lexical retrieval results
// with scores normalized to [0,1]. An empty query yields no results.
func (idx *DocumentIndex) Search(ctx context.Context, query string, limit int) ([]retrieval.RetrievalResult, error) {
	if limit <= 0 {
		limit = 20
	}

	match := ftsQuery(query)
	if match == "" {
		return []retrieval.RetrievalResult{}, nil
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT f.id, d.content, rank
		FROM documents_fts f
		JOIN documents d ON d.id = f.id
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("fts search failed: %w", err)
	}
	defer rows.Close()

	var results []retrieval.RetrievalResult
	maxScore := 0.0
	for rows.Next() {
		var id string
		var compressed []byte
		var rank float64
		if err := rows.Scan(&id, &compressed, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		content, err := idx.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress document %s: %w", id, err)
		}

		// FTS5 bm25 rank is negative, smaller is better.
		score := -rank
		if score < 0 {
			score = 0
		}
		if score > maxScore {
			maxScore = score
		}
		results = append(results, retrieval.RetrievalResult{
			ID:      id,
			Content: string(content),
			Score:   score,
			Source:  retrieval.SourceLexical,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fts search failed: %w", err)
	}

	if maxScore > 0 {
		for i := range results {
			results[i].Score /= maxScore
		}
	}
	if results == nil {
		results = []retrieval.RetrievalResult{}
	}
	return results, nil
}

// Close releases compression resources.
func (idx *DocumentIndex) Close() {
	idx.decoder.Close()
	idx.encoder.Close()
}

var ftsToken = regexp.MustCompile(`[A-Za-z0-9_]+`)

// ftsQuery reduces a raw query to bare word tokens, each quoted so
// punctuation cannot break FTS5 syntax. Splitting on punctuation keeps
// terms like src/bar.ts:10 matchable by their parts instead of turning
// the whole thing into one phrase; tokens are OR-joined for recall.
func ftsQuery(query string) string {
	tokens := ftsToken.FindAllString(query, -1)
	if len(tokens) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(tokens))
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		quoted = append(quoted, `"`+tok+`"`)
	}
	return strings.Join(quoted, " OR ")
}

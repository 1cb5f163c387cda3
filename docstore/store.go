// Package docstore keeps a SQLite catalog of ingested documents and
// their chunks so rebuilds and audits can query provenance without
// re-reading source files.
package docstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/brendon-colburn/medical-context-retrieval/schema"
)

// Store wraps the catalog database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			// optional pragmas
		}
	}
	store := &Store{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            doc_id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            source_url TEXT,
            source_org TEXT,
            pub_date TEXT,
            fingerprint TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS chunks (
            chunk_id TEXT PRIMARY KEY,
            doc_id TEXT NOT NULL,
            chunk_index INTEGER NOT NULL,
            section_path TEXT,
            raw_chunk TEXT NOT NULL,
            ctx_header TEXT,
            augmented_chunk TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id, chunk_index);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertDocument inserts or refreshes one document row.
func (s *Store) UpsertDocument(ctx context.Context, doc schema.Document) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents(doc_id, title, source_url, source_org, pub_date, fingerprint)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(doc_id) DO UPDATE SET
    title=excluded.title,
    source_url=excluded.source_url,
    source_org=excluded.source_org,
    pub_date=excluded.pub_date,
    fingerprint=excluded.fingerprint`,
		doc.ID, doc.Title, doc.SourceURL, doc.SourceOrg, doc.PubDate, doc.Fingerprint)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// UpsertChunks inserts or refreshes chunk rows in one transaction.
func (s *Store) UpsertChunks(ctx context.Context, chunks []schema.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `INSERT INTO chunks(chunk_id, doc_id, chunk_index, section_path, raw_chunk, ctx_header, augmented_chunk)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(chunk_id) DO UPDATE SET
    doc_id=excluded.doc_id,
    chunk_index=excluded.chunk_index,
    section_path=excluded.section_path,
    raw_chunk=excluded.raw_chunk,
    ctx_header=excluded.ctx_header,
    augmented_chunk=excluded.augmented_chunk`,
			chunk.ID, chunk.DocID, chunk.Index, chunk.SectionPath, chunk.RawChunk, chunk.CtxHeader, chunk.AugmentedChunk)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

// Document returns one document by id; sql.ErrNoRows when absent.
func (s *Store) Document(ctx context.Context, docID string) (schema.Document, error) {
	var doc schema.Document
	err := s.db.QueryRowContext(ctx, `SELECT doc_id, title, source_url, source_org, pub_date, fingerprint
FROM documents WHERE doc_id = ?`, docID).
		Scan(&doc.ID, &doc.Title, &doc.SourceURL, &doc.SourceOrg, &doc.PubDate, &doc.Fingerprint)
	return doc, err
}

// Fingerprint returns the stored content fingerprint for a document, or
// empty when the document is unknown.
func (s *Store) Fingerprint(ctx context.Context, docID string) (string, error) {
	var fingerprint string
	err := s.db.QueryRowContext(ctx, `SELECT fingerprint FROM documents WHERE doc_id = ?`, docID).Scan(&fingerprint)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return fingerprint, err
}

// Chunks returns all chunks for a document ordered by position.
func (s *Store) Chunks(ctx context.Context, docID string) ([]schema.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, doc_id, chunk_index, section_path, raw_chunk, ctx_header, augmented_chunk
FROM chunks WHERE doc_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []schema.Chunk
	for rows.Next() {
		var chunk schema.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocID, &chunk.Index, &chunk.SectionPath, &chunk.RawChunk, &chunk.CtxHeader, &chunk.AugmentedChunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Counts reports document and chunk totals.
func (s *Store) Counts(ctx context.Context) (documents, chunks int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&documents); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, 0, err
	}
	return documents, chunks, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

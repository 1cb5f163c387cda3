// Package cache persists index build artifacts so later runs can skip
// embedding generation. Artifacts live side by side under one base URL:
// the embedding matrix, the serialized vector index and the chunk
// metadata, plus the source document catalog.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/brendon-colburn/medical-context-retrieval/schema"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb/index"
)

const (
	embeddingsFile = "embeddings.bin"
	indexFile      = "vector.index"
	metadataFile   = "metadata.json"
	documentsFile  = "documents.json"
	chunksFile     = "chunks.json"
)

// ReadError marks a cached artifact that exists but cannot be decoded.
// Callers treat it as a cache miss rather than a hard failure.
type ReadError struct {
	URL string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("unreadable cache artifact %s: %v", e.URL, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Store reads and writes build artifacts under a base URL.
type Store struct {
	fs      afs.Service
	baseURL string
	move    func(ctx context.Context, sourceURL, destURL string) error
}

// New creates a cache store rooted at baseURL.
func New(baseURL string) *Store {
	store := &Store{fs: afs.New(), baseURL: baseURL}
	store.move = func(ctx context.Context, sourceURL, destURL string) error {
		return store.fs.Move(ctx, sourceURL, destURL)
	}
	return store
}

// BaseURL returns the artifact root.
func (s *Store) BaseURL() string {
	return s.baseURL
}

// HasIndex reports whether a serialized vector index exists.
func (s *Store) HasIndex(ctx context.Context) bool {
	exists, _ := s.fs.Exists(ctx, s.artifactURL(indexFile))
	return exists
}

// HasEmbeddings reports whether a persisted embedding matrix exists.
func (s *Store) HasEmbeddings(ctx context.Context) bool {
	exists, _ := s.fs.Exists(ctx, s.artifactURL(embeddingsFile))
	return exists
}

// HasMetadata reports whether persisted chunk metadata exists.
func (s *Store) HasMetadata(ctx context.Context) bool {
	exists, _ := s.fs.Exists(ctx, s.artifactURL(metadataFile))
	return exists
}

// SaveEmbeddings persists the embedding matrix atomically.
func (s *Store) SaveEmbeddings(ctx context.Context, vectors [][]float32) error {
	data, err := encodeMatrix(vectors)
	if err != nil {
		return fmt.Errorf("failed to encode embeddings: %w", err)
	}
	return s.upload(ctx, embeddingsFile, data)
}

// LoadEmbeddings returns the persisted matrix, or nil when absent.
func (s *Store) LoadEmbeddings(ctx context.Context) ([][]float32, error) {
	data, found, err := s.download(ctx, embeddingsFile)
	if err != nil || !found {
		return nil, err
	}
	vectors, err := decodeMatrix(data)
	if err != nil {
		return nil, &ReadError{URL: s.artifactURL(embeddingsFile), Err: err}
	}
	return vectors, nil
}

// SaveIndex persists a serialized vector index atomically.
func (s *Store) SaveIndex(ctx context.Context, idx index.Index) error {
	data, err := index.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return s.upload(ctx, indexFile, data)
}

// LoadIndex returns the persisted index, or nil when absent.
func (s *Store) LoadIndex(ctx context.Context) (index.Index, error) {
	data, found, err := s.download(ctx, indexFile)
	if err != nil || !found {
		return nil, err
	}
	idx, err := index.Unmarshal(data)
	if err != nil {
		return nil, &ReadError{URL: s.artifactURL(indexFile), Err: err}
	}
	return idx, nil
}

// SaveMetadata persists chunk metadata atomically.
func (s *Store) SaveMetadata(ctx context.Context, chunks []schema.Chunk) error {
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return s.upload(ctx, metadataFile, data)
}

// LoadMetadata returns persisted chunk metadata, or nil when absent.
func (s *Store) LoadMetadata(ctx context.Context) ([]schema.Chunk, error) {
	data, found, err := s.download(ctx, metadataFile)
	if err != nil || !found {
		return nil, err
	}
	var chunks []schema.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, &ReadError{URL: s.artifactURL(metadataFile), Err: err}
	}
	return chunks, nil
}

// SaveDocuments persists the source document catalog atomically.
func (s *Store) SaveDocuments(ctx context.Context, documents []schema.Document) error {
	data, err := json.Marshal(documents)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	return s.upload(ctx, documentsFile, data)
}

// LoadDocuments returns the persisted document catalog, or nil when
// absent.
func (s *Store) LoadDocuments(ctx context.Context) ([]schema.Document, error) {
	data, found, err := s.download(ctx, documentsFile)
	if err != nil || !found {
		return nil, err
	}
	var documents []schema.Document
	if err := json.Unmarshal(data, &documents); err != nil {
		return nil, &ReadError{URL: s.artifactURL(documentsFile), Err: err}
	}
	return documents, nil
}

// SaveChunks persists the ingested chunk corpus atomically. Unlike
// metadata, this is the ingestion-side record and is not consulted for
// cache validity.
func (s *Store) SaveChunks(ctx context.Context, chunks []schema.Chunk) error {
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	return s.upload(ctx, chunksFile, data)
}

// LoadChunks returns the persisted chunk corpus, or nil when absent.
func (s *Store) LoadChunks(ctx context.Context) ([]schema.Chunk, error) {
	data, found, err := s.download(ctx, chunksFile)
	if err != nil || !found {
		return nil, err
	}
	var chunks []schema.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, &ReadError{URL: s.artifactURL(chunksFile), Err: err}
	}
	return chunks, nil
}

// Clear removes all persisted artifacts.
func (s *Store) Clear(ctx context.Context) error {
	for _, name := range []string{embeddingsFile, indexFile, metadataFile, documentsFile, chunksFile} {
		URL := s.artifactURL(name)
		if exists, _ := s.fs.Exists(ctx, URL); !exists {
			continue
		}
		if err := s.fs.Delete(ctx, URL); err != nil {
			return fmt.Errorf("failed to delete %s: %w", URL, err)
		}
	}
	return nil
}

func (s *Store) artifactURL(name string) string {
	return url.Join(s.baseURL, name)
}

// upload writes to a temp sibling first, then moves it over the final
// URL so readers never observe a partial artifact. The direct re-upload
// runs only when the move itself fails.
func (s *Store) upload(ctx context.Context, name string, data []byte) error {
	final := s.artifactURL(name)
	tmp := final + ".tmp"
	if err := s.fs.Upload(ctx, tmp, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload temp asset: %w", err)
	}
	if err := s.move(ctx, tmp, final); err != nil {
		if err2 := s.fs.Upload(ctx, final, file.DefaultFileOsMode, bytes.NewReader(data)); err2 != nil {
			_ = s.fs.Delete(ctx, tmp)
			return fmt.Errorf("failed to move asset and upload fallback: %v / %v", err, err2)
		}
		_ = s.fs.Delete(ctx, tmp)
	}
	return nil
}

func (s *Store) download(ctx context.Context, name string) ([]byte, bool, error) {
	URL := s.artifactURL(name)
	exists, _ := s.fs.Exists(ctx, URL)
	if !exists {
		return nil, false, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open asset: %w", err)
	}
	return data, true, nil
}

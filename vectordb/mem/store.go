// Package mem implements the local backend: an in-memory vector index
// with positionally aligned chunk metadata.
package mem

import (
	"context"
	"fmt"
	"sync"

	"github.com/brendon-colburn/medical-context-retrieval/schema"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb/index"
)

// Store owns a vector index and the chunk metadata aligned to its rows.
// It is mutated only through Upsert; searches hold read locks.
type Store struct {
	strategy index.Strategy
	idx      index.Index
	chunks   []schema.Chunk
	sync.RWMutex
}

// NewStore creates an empty local backend building indexes with the
// given strategy.
func NewStore(strategy index.Strategy) *Store {
	if strategy == "" {
		strategy = index.StrategyAuto
	}
	return &Store{strategy: strategy}
}

// Restore creates a local backend around an already-built index and its
// aligned metadata, typically reloaded from a cache snapshot.
func Restore(idx index.Index, chunks []schema.Chunk) *Store {
	return &Store{strategy: idx.Kind(), idx: idx, chunks: chunks}
}

// Upsert builds a fresh index over vectors and replaces the previous
// corpus wholesale; chunks must align positionally with vectors.
func (s *Store) Upsert(ctx context.Context, chunks []schema.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mem: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	idx, err := index.Build(vectors, s.strategy)
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	s.idx = idx
	s.chunks = append([]schema.Chunk(nil), chunks...)
	return nil
}

// Search answers a top-k query against the local index. The query is
// normalized before the search; normalization is a no-op for vectors
// that are already unit length.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, opts ...vectordb.Option) ([]vectordb.Match, error) {
	options := vectordb.NewOptions(opts...)
	s.RLock()
	defer s.RUnlock()
	if s.idx == nil {
		return nil, fmt.Errorf("mem: no index built")
	}
	query := make([]float32, len(vector))
	copy(query, vector)
	index.Normalize(query)
	matches, err := s.idx.Search(query, topK)
	if err != nil {
		return nil, err
	}
	out := make([]vectordb.Match, 0, len(matches))
	for _, match := range matches {
		if match.Position < 0 || match.Position >= len(s.chunks) {
			continue
		}
		chunk := s.chunks[match.Position]
		if options.Matcher != nil && options.Matcher.IsExcluded(chunk) {
			continue
		}
		out = append(out, vectordb.Match{Position: match.Position, Score: match.Score, Chunk: chunk})
	}
	return out, nil
}

// Count reports the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.RLock()
	defer s.RUnlock()
	return len(s.chunks), nil
}

// Index exposes the built index for persistence; nil until Upsert or
// Restore ran.
func (s *Store) Index() index.Index {
	s.RLock()
	defer s.RUnlock()
	return s.idx
}

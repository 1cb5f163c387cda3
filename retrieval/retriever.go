// Package retrieval answers similarity queries against a backend chosen
// at construction time. The retriever itself is backend-agnostic: it
// embeds the query, delegates the search, and assigns ranks.
package retrieval

import (
	"context"
	"fmt"

	"github.com/brendon-colburn/medical-context-retrieval/embeddings"
	"github.com/brendon-colburn/medical-context-retrieval/schema"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
)

const (
	// DefaultTopK is used when a query does not set a result count.
	DefaultTopK = 5

	queryCacheSize = 128
)

// Retriever runs top-k similarity searches over one backend.
type Retriever struct {
	embedder embeddings.Embedder
	backend  vectordb.Backend
	queries  *queryCache
}

// New creates a retriever bound to an embedder and a backend.
func New(embedder embeddings.Embedder, backend vectordb.Backend) *Retriever {
	return &Retriever{
		embedder: embedder,
		backend:  backend,
		queries:  newQueryCache(queryCacheSize),
	}
}

// Search embeds the query and returns up to topK results ranked in
// backend order, rank starting at 1. A failed query embedding is
// returned as an error, never degraded.
func (r *Retriever) Search(ctx context.Context, query string, topK int, opts ...vectordb.Option) ([]schema.RetrievalResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := r.backend.Search(ctx, vector, topK, opts...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	results := make([]schema.RetrievalResult, 0, len(matches))
	for i, match := range matches {
		results = append(results, schema.RetrievalResult{
			Rank:  i + 1,
			Score: match.Score,
			Chunk: match.Chunk,
		})
	}
	return results, nil
}

// Count reports the backend corpus size.
func (r *Retriever) Count(ctx context.Context) (int, error) {
	return r.backend.Count(ctx)
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if vector, found := r.queries.Get(query); found {
		return vector, nil
	}
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	r.queries.Put(query, vector)
	return vector, nil
}

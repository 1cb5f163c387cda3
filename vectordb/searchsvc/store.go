package searchsvc

import (
	"context"

	"github.com/brendon-colburn/medical-context-retrieval/schema"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
)

// Store adapts Client to the vectordb.Backend interface. Remote hits are
// keyed rather than positional, so Position is always -1.
type Store struct {
	client *Client
}

// NewStore creates a remote backend over the given client.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Upsert uploads all chunk/vector pairs to the remote index.
func (s *Store) Upsert(ctx context.Context, chunks []schema.Chunk, vectors [][]float32) error {
	_, err := s.client.Upload(ctx, chunks, vectors)
	return err
}

// Search answers a top-k vector query; scores use the service's own
// scale and are returned in service order.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, opts ...vectordb.Option) ([]vectordb.Match, error) {
	options := vectordb.NewOptions(opts...)
	hits, err := s.client.Search(ctx, vector, topK, options.Filter)
	if err != nil {
		return nil, err
	}
	matches := make([]vectordb.Match, 0, len(hits))
	for _, hit := range hits {
		if options.Matcher != nil && options.Matcher.IsExcluded(hit.Chunk) {
			continue
		}
		matches = append(matches, vectordb.Match{Position: -1, Score: hit.Score, Chunk: hit.Chunk})
	}
	return matches, nil
}

// Count reports the remote document count.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.client.Count(ctx)
}

package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/brendon-colburn/medical-context-retrieval/schema"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeBackend struct {
	matches []vectordb.Match
	topK    int
}

func (f *fakeBackend) Upsert(ctx context.Context, chunks []schema.Chunk, vectors [][]float32) error {
	return nil
}

func (f *fakeBackend) Search(ctx context.Context, vector []float32, topK int, opts ...vectordb.Option) ([]vectordb.Match, error) {
	f.topK = topK
	return f.matches, nil
}

func (f *fakeBackend) Count(ctx context.Context) (int, error) {
	return len(f.matches), nil
}

func TestSearchAssignsDenseRanksInBackendOrder(t *testing.T) {
	backend := &fakeBackend{matches: []vectordb.Match{
		{Position: 3, Score: 0.9, Chunk: schema.Chunk{ID: "a"}},
		{Position: 0, Score: 0.7, Chunk: schema.Chunk{ID: "b"}},
		{Position: 7, Score: 0.4, Chunk: schema.Chunk{ID: "c"}},
	}}
	retriever := New(&fakeEmbedder{}, backend)

	results, err := retriever.Search(context.Background(), "hypertension", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, result := range results {
		if result.Rank != i+1 {
			t.Fatalf("result %d: expected rank %d, got %d", i, i+1, result.Rank)
		}
	}
	if results[0].ID != "a" || results[2].ID != "c" {
		t.Fatalf("results reordered: %+v", results)
	}
}

func TestSearchDefaultTopK(t *testing.T) {
	backend := &fakeBackend{}
	retriever := New(&fakeEmbedder{}, backend)
	if _, err := retriever.Search(context.Background(), "q", 0); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if backend.topK != DefaultTopK {
		t.Fatalf("expected default topK %d, got %d", DefaultTopK, backend.topK)
	}
}

func TestSearchQueryEmbeddingFailureSurfaces(t *testing.T) {
	cause := errors.New("query embedding failed")
	retriever := New(&fakeEmbedder{err: cause}, &fakeBackend{})
	if _, err := retriever.Search(context.Background(), "q", 3); !errors.Is(err, cause) {
		t.Fatalf("expected embedding failure, got %v", err)
	}
}

func TestSearchReusesCachedQueryVector(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := New(embedder, &fakeBackend{})
	ctx := context.Background()
	if _, err := retriever.Search(ctx, "same query", 3); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if _, err := retriever.Search(ctx, "same query", 3); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("expected 1 embed call for repeated query, got %d", embedder.calls)
	}
}

func TestQueryCacheEviction(t *testing.T) {
	cache := newQueryCache(2)
	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})
	cache.Put("c", []float32{3})
	if _, found := cache.Get("a"); found {
		t.Fatal("expected oldest entry evicted")
	}
	if _, found := cache.Get("c"); !found {
		t.Fatal("expected newest entry present")
	}
}

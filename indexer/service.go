// Package indexer orchestrates index builds: it decides between reusing
// cached artifacts and regenerating embeddings, batches provider calls,
// and persists what it built for the next run.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brendon-colburn/medical-context-retrieval/cache"
	"github.com/brendon-colburn/medical-context-retrieval/embeddings"
	"github.com/brendon-colburn/medical-context-retrieval/schema"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb/index"
)

// Service builds or reloads the retrieval corpus.
type Service struct {
	embedder embeddings.Embedder
	store    *cache.Store
	remote   vectordb.Backend
	config   Config
	sleep    func(time.Duration)
}

// New creates an orchestrator over an embedder and a cache store.
func New(embedder embeddings.Embedder, store *cache.Store, opts ...Option) *Service {
	service := &Service{
		embedder: embedder,
		store:    store,
		config: Config{
			BatchSize:  defaultBatchSize,
			BatchDelay: defaultBatchDelay,
			Strategy:   index.StrategyAuto,
		},
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Result is the outcome of a build-or-load cycle. Index is nil when a
// remote backend holds the vectors.
type Result struct {
	Index      index.Index
	Metadata   []schema.Chunk
	Embeddings [][]float32
	FromCache  bool
}

// BuildOrLoad returns a ready corpus: reloaded from cache when the
// cached artifacts cover exactly the given texts, rebuilt otherwise.
// force skips the cache check and always rebuilds.
func (s *Service) BuildOrLoad(ctx context.Context, texts []string, metadata []schema.Chunk, force bool) (*Result, error) {
	if len(texts) != len(metadata) {
		return nil, fmt.Errorf("indexer: %d texts but %d metadata entries", len(texts), len(metadata))
	}
	if !force {
		if result := s.loadCached(ctx, len(texts)); result != nil {
			fmt.Printf("medctx: reusing cached index entries=%d\n", len(result.Metadata))
			return result, nil
		}
	}
	return s.build(ctx, texts, metadata)
}

// loadCached returns a cached result, or nil on any miss. Unreadable
// artifacts count as misses so a rebuild can repair them.
func (s *Service) loadCached(ctx context.Context, expected int) *Result {
	if !s.store.HasEmbeddings(ctx) || !s.store.HasMetadata(ctx) {
		return nil
	}
	if s.remote == nil && !s.store.HasIndex(ctx) {
		return nil
	}
	metadata, err := s.store.LoadMetadata(ctx)
	if err != nil {
		s.reportReadError(err)
		return nil
	}
	// Validity is cardinality only: two equal-size corpora with different
	// content are indistinguishable here. Content changes require force.
	if len(metadata) != expected {
		fmt.Printf("medctx: cache has %d entries, corpus has %d, rebuilding\n", len(metadata), expected)
		return nil
	}
	vectors, err := s.store.LoadEmbeddings(ctx)
	if err != nil {
		s.reportReadError(err)
		return nil
	}
	if len(vectors) != expected {
		fmt.Printf("medctx: cached embeddings rows %d do not match metadata %d, rebuilding\n", len(vectors), expected)
		return nil
	}
	result := &Result{Metadata: metadata, Embeddings: vectors, FromCache: true}
	if s.remote == nil {
		idx, err := s.store.LoadIndex(ctx)
		if err != nil {
			s.reportReadError(err)
			return nil
		}
		result.Index = idx
	}
	return result
}

func (s *Service) reportReadError(err error) {
	var readErr *cache.ReadError
	if errors.As(err, &readErr) {
		fmt.Printf("medctx: %v, rebuilding\n", readErr)
		return
	}
	fmt.Printf("medctx: cache load failed: %v, rebuilding\n", err)
}

func (s *Service) build(ctx context.Context, texts []string, metadata []schema.Chunk) (*Result, error) {
	start := time.Now()
	fmt.Printf("medctx: building index entries=%d batchSize=%d\n", len(texts), s.config.BatchSize)
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	result := &Result{Metadata: metadata, Embeddings: vectors}
	if s.remote != nil {
		if err := s.remote.Upsert(ctx, metadata, vectors); err != nil {
			return nil, fmt.Errorf("remote upsert failed: %w", err)
		}
	} else {
		idx, err := index.Build(vectors, s.config.Strategy)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveIndex(ctx, idx); err != nil {
			return nil, fmt.Errorf("failed to persist index: %w", err)
		}
		result.Index = idx
	}
	if err := s.store.SaveEmbeddings(ctx, vectors); err != nil {
		return nil, fmt.Errorf("failed to persist embeddings: %w", err)
	}
	if err := s.store.SaveMetadata(ctx, metadata); err != nil {
		return nil, fmt.Errorf("failed to persist metadata: %w", err)
	}
	fmt.Printf("medctx: index build done entries=%d duration=%s\n", len(texts), time.Since(start))
	return result, nil
}

// embedAll runs the provider in fixed-size batches with a pause between
// consecutive batches. A batch that yields no vectors aborts the build
// before anything is persisted.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	batchSize := s.config.BatchSize
	totalBatches := (len(texts) + batchSize - 1) / batchSize
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchNo := i/batchSize + 1
		batch, err := s.embedder.EmbedDocuments(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", batchNo, totalBatches, err)
		}
		if len(batch) != end-i {
			return nil, &index.BuildError{Reason: fmt.Sprintf("batch %d/%d returned %d vectors for %d texts", batchNo, totalBatches, len(batch), end-i)}
		}
		for j, vector := range batch {
			if s.config.Dimension > 0 && len(vector) != s.config.Dimension {
				return nil, &index.BuildError{Reason: fmt.Sprintf("vector %d has dimension %d, want %d", i+j, len(vector), s.config.Dimension)}
			}
		}
		vectors = append(vectors, batch...)
		fmt.Printf("medctx: embedded batch %d/%d\n", batchNo, totalBatches)
		if end < len(texts) {
			s.sleep(s.config.BatchDelay)
		}
	}
	return vectors, nil
}

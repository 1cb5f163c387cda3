// Package service assembles the retrieval stack from configuration: an
// embedding provider wrapped in retry handling, a local or remote
// vector backend chosen once at construction, the artifact cache and
// the optional document catalog.
package service

import (
	"context"
	"fmt"

	"github.com/brendon-colburn/medical-context-retrieval/cache"
	"github.com/brendon-colburn/medical-context-retrieval/docstore"
	"github.com/brendon-colburn/medical-context-retrieval/embeddings"
	"github.com/brendon-colburn/medical-context-retrieval/embeddings/azure"
	"github.com/brendon-colburn/medical-context-retrieval/embeddings/openai"
	"github.com/brendon-colburn/medical-context-retrieval/indexer"
	"github.com/brendon-colburn/medical-context-retrieval/ingestion"
	"github.com/brendon-colburn/medical-context-retrieval/retrieval"
	"github.com/brendon-colburn/medical-context-retrieval/schema"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb/mem"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb/searchsvc"
)

// Service is the high-level entry point for indexing and retrieval.
type Service struct {
	config    *Config
	generator *embeddings.Generator
	store     *cache.Store
	indexer   *indexer.Service
	backend   vectordb.Backend
	retriever *retrieval.Retriever
	catalog   *docstore.Store
	ingest    *ingestion.Service
	remote    bool
}

// New builds the service from config. Remote mode binds the retriever
// immediately; local mode binds it on Index or Load.
func New(ctx context.Context, config *Config) (*Service, error) {
	provider, err := newProvider(config)
	if err != nil {
		return nil, err
	}
	generator := embeddings.NewGenerator(provider, embeddings.Config{
		MaxRetries: config.Embedding.MaxRetries,
		Dimension:  config.Embedding.Dimension,
	})
	store := cache.New(config.Cache.BaseURL)
	options := []indexer.Option{
		indexer.WithConfig(indexer.Config{
			BatchSize:  config.Indexing.BatchSize,
			BatchDelay: config.Indexing.BatchDelay(),
			Strategy:   config.Indexing.IndexStrategy(),
			Dimension:  config.Embedding.Dimension,
		}),
	}
	service := &Service{
		config:    config,
		generator: generator,
		store:     store,
		ingest:    ingestion.New(),
		remote:    config.Backend.IsRemote(),
	}
	if service.remote {
		client, err := searchsvc.NewClient(searchsvc.Config{
			Endpoint:   config.Backend.Search.Endpoint,
			IndexName:  config.Backend.Search.IndexName,
			APIKey:     config.Backend.Search.APIKey,
			APIVersion: config.Backend.Search.APIVersion,
		})
		if err != nil {
			return nil, err
		}
		service.backend = searchsvc.NewStore(client)
		service.retriever = retrieval.New(generator, service.backend)
		options = append(options, indexer.WithRemote(service.backend))
	}
	service.indexer = indexer.New(generator, store, options...)
	if config.Catalog.Path != "" {
		catalog, err := docstore.Open(ctx, config.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		service.catalog = catalog
	}
	return service, nil
}

func newProvider(config *Config) (embeddings.Embedder, error) {
	switch config.Provider {
	case "", "azure":
		client := azure.NewClient(config.Azure.Endpoint, config.Azure.APIKey, config.Azure.Deployment)
		return &azure.Embedder{C: client}, nil
	case "openai":
		return openai.NewClient(config.OpenAI.APIKey, config.OpenAI.Model)
	}
	return nil, fmt.Errorf("unknown provider %q", config.Provider)
}

// Index loads a pre-chunked corpus from chunksURL and builds or reloads
// the vector index over it.
func (s *Service) Index(ctx context.Context, chunksURL string, force bool) (*indexer.Result, error) {
	chunks, err := s.ingest.LoadChunks(ctx, chunksURL)
	if err != nil {
		return nil, err
	}
	return s.IndexChunks(ctx, chunks, force)
}

// IndexChunks builds or reloads the vector index over the given chunks
// and binds the retriever to the resulting backend.
func (s *Service) IndexChunks(ctx context.Context, chunks []schema.Chunk, force bool) (*indexer.Result, error) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].EmbeddingText()
	}
	result, err := s.indexer.BuildOrLoad(ctx, texts, chunks, force)
	if err != nil {
		return nil, err
	}
	if !result.FromCache {
		if err := s.store.SaveChunks(ctx, result.Metadata); err != nil {
			return nil, fmt.Errorf("failed to persist chunk corpus: %w", err)
		}
	}
	if !s.remote {
		s.backend = mem.Restore(result.Index, result.Metadata)
		s.retriever = retrieval.New(s.generator, s.backend)
	}
	if s.catalog != nil {
		if err := s.catalog.UpsertChunks(ctx, result.Metadata); err != nil {
			return result, fmt.Errorf("failed to catalog chunks: %w", err)
		}
	}
	return result, nil
}

// Load restores the local backend from cached artifacts without
// touching the embedding provider. Remote mode needs no load.
func (s *Service) Load(ctx context.Context) error {
	if s.remote {
		return nil
	}
	idx, err := s.store.LoadIndex(ctx)
	if err != nil {
		return err
	}
	if idx == nil {
		return fmt.Errorf("no cached index at %s", s.store.BaseURL())
	}
	metadata, err := s.store.LoadMetadata(ctx)
	if err != nil {
		return err
	}
	if len(metadata) != idx.Len() {
		return fmt.Errorf("cache artifacts out of sync at %s: index has %d vectors, metadata has %d entries; rebuild with force",
			s.store.BaseURL(), idx.Len(), len(metadata))
	}
	s.backend = mem.Restore(idx, metadata)
	s.retriever = retrieval.New(s.generator, s.backend)
	return nil
}

// Search answers a top-k similarity query.
func (s *Service) Search(ctx context.Context, query string, topK int, opts ...vectordb.Option) ([]schema.RetrievalResult, error) {
	if s.retriever == nil {
		return nil, fmt.Errorf("no index bound; run Index or Load first")
	}
	return s.retriever.Search(ctx, query, topK, opts...)
}

// Count reports the backend corpus size.
func (s *Service) Count(ctx context.Context) (int, error) {
	if s.backend == nil {
		return 0, fmt.Errorf("no index bound; run Index or Load first")
	}
	return s.backend.Count(ctx)
}

// IngestDocuments loads source documents from baseURL, fingerprints
// them and records them in the catalog and the artifact cache.
func (s *Service) IngestDocuments(ctx context.Context, baseURL string) ([]schema.Document, error) {
	documents, err := s.ingest.LoadDocuments(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	if s.catalog != nil {
		for _, doc := range documents {
			if err := s.catalog.UpsertDocument(ctx, doc); err != nil {
				return nil, err
			}
		}
	}
	if err := s.store.SaveDocuments(ctx, documents); err != nil {
		return nil, err
	}
	return documents, nil
}

// Close releases held resources.
func (s *Service) Close() error {
	if s.catalog != nil {
		return s.catalog.Close()
	}
	return nil
}

package indexer

import (
	"time"

	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb/index"
)

// Config controls batching and index construction.
type Config struct {
	// BatchSize is the number of texts embedded per provider call.
	BatchSize int
	// BatchDelay is the pause between consecutive batches.
	BatchDelay time.Duration
	// Strategy selects the local index layout.
	Strategy index.Strategy
	// Dimension is the expected embedding width; zero disables the check.
	Dimension int
}

const (
	defaultBatchSize  = 5
	defaultBatchDelay = 2 * time.Second
)

// Option defines a functional option for configuring the Service
type Option func(*Service)

// WithConfig overrides batching and index settings
func WithConfig(config Config) Option {
	return func(s *Service) {
		if config.BatchSize > 0 {
			s.config.BatchSize = config.BatchSize
		}
		if config.BatchDelay > 0 {
			s.config.BatchDelay = config.BatchDelay
		}
		if config.Strategy != "" {
			s.config.Strategy = config.Strategy
		}
		if config.Dimension > 0 {
			s.config.Dimension = config.Dimension
		}
	}
}

// WithRemote routes vectors to a remote backend instead of a local index
func WithRemote(backend vectordb.Backend) Option {
	return func(s *Service) {
		s.remote = backend
	}
}

// WithSleep overrides the inter-batch sleep, used by tests
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Service) {
		s.sleep = sleep
	}
}

// Package vectordb abstracts the vector search destination behind one
// interface with two variants: a local in-memory index (mem) and a
// managed remote vector-search service (searchsvc). The variant is
// selected once at construction, never per call.
package vectordb

import (
	"context"

	"github.com/brendon-colburn/medical-context-retrieval/matching"
	"github.com/brendon-colburn/medical-context-retrieval/schema"
)

// Match is a single similarity hit merged with its chunk fields.
// Position is the row position for local backends and -1 for remote
// hits, which are keyed rather than positional.
type Match struct {
	Position int
	Score    float32
	Chunk    schema.Chunk
}

// Options carries per-search settings.
type Options struct {
	// Filter is an opaque filter expression passed through unmodified to
	// remote backends.
	Filter string
	// Matcher applies provenance-based inclusion/exclusion to local hits.
	Matcher *matching.Manager
}

// Option configures a single search call.
type Option func(*Options)

// WithFilter sets the opaque remote filter expression.
func WithFilter(filter string) Option {
	return func(o *Options) {
		o.Filter = filter
	}
}

// WithMatcher sets a provenance matcher for local result filtering.
func WithMatcher(matcher *matching.Manager) Option {
	return func(o *Options) {
		o.Matcher = matcher
	}
}

// NewOptions applies opts over defaults.
func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Backend is the capability set shared by the local index and the
// remote search service: load vectors in, answer top-k queries, report
// corpus size.
type Backend interface {
	Upsert(ctx context.Context, chunks []schema.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int, opts ...Option) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

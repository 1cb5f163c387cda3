package embeddings

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	// DefaultMaxRetries is the attempt budget per provider call.
	DefaultMaxRetries = 5
	// DefaultDimension matches text-embedding-3-large and shapes the
	// zero-vector fallback when the provider is unreachable.
	DefaultDimension = 3072

	rateLimitBackoffCap = 60 * time.Second
	transientBackoffCap = 10 * time.Second
)

// Config controls retry and fallback behavior. Zero values use defaults.
type Config struct {
	MaxRetries int
	Dimension  int
}

// Option configures a Generator.
type Option func(*Generator)

// WithSleep overrides the backoff sleep; tests inject a recorder.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// WithJitter overrides the uniform jitter source; tests inject a constant.
func WithJitter(jitter func() float64) Option {
	return func(g *Generator) {
		g.jitter = jitter
	}
}

// Generator converts text batches into embedding vectors through an
// unreliable, rate-limited provider. Retryable failures are absorbed
// here; batch calls degrade to zero vectors on exhaustion so callers can
// proceed, while query embedding surfaces terminal errors.
// Concurrent calls share no mutable retry state.
type Generator struct {
	provider Embedder
	config   Config
	sleep    func(context.Context, time.Duration) error
	jitter   func() float64
}

// NewGenerator creates a Generator wrapping the supplied provider.
func NewGenerator(provider Embedder, config Config, opts ...Option) *Generator {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.Dimension <= 0 {
		config.Dimension = DefaultDimension
	}
	generator := &Generator{
		provider: provider,
		config:   config,
		sleep:    sleepContext,
		jitter:   rand.Float64,
	}
	for _, opt := range opts {
		opt(generator)
	}
	return generator
}

// Dimension returns the fallback vector dimension.
func (g *Generator) Dimension() int {
	return g.config.Dimension
}

// EmbedDocuments embeds texts preserving length and order. Empty input
// returns empty output without a provider call. When retries are
// exhausted or credentials are rejected, one zero vector per text is
// returned instead of an error; callers that care must notice all-zero
// rows themselves. Context cancellation is surfaced, never degraded.
func (g *Generator) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := g.embedWithRetry(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		fmt.Printf("medctx: embeddings degraded to zero vectors: %v\n", err)
		return g.zeroVectors(len(texts)), nil
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text through the same retry machine.
// Unlike batch calls it fails loudly: an unsearchable query must not
// silently return garbage results.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("query embedding failed: provider returned empty result")
	}
	return vectors[0], nil
}

// embedWithRetry drives the retry state machine. It returns a
// *CredentialError without retrying, or a *RetriesExhaustedError once the
// attempt budget is spent.
func (g *Generator) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	state := retryState{maxAttempts: g.config.MaxRetries, jitter: g.jitter}
	for {
		vectors, err := g.provider.EmbedDocuments(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		backoff, retry := state.next(Classify(err))
		if !retry {
			return nil, state.terminal()
		}
		fmt.Printf("medctx: embeddings attempt %d/%d failed, retrying in %s: %v\n",
			state.attempt, state.maxAttempts, backoff, err)
		if err := g.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

// sleepContext waits for the backoff or returns early with the context
// error once the caller cancels.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Generator) zeroVectors(n int) [][]float32 {
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = make([]float32, g.config.Dimension)
	}
	return vectors
}

// retryState tracks attempts and computes the class-specific backoff:
// rate limits back off with min(2^attempt + jitter, 60s), other transient
// failures with min(2^attempt, 10s), credential failures never retry.
type retryState struct {
	attempt     int
	maxAttempts int
	jitter      func() float64
	lastErr     error
}

// next records the classified failure and reports whether to retry and
// for how long to sleep first.
func (s *retryState) next(err error) (time.Duration, bool) {
	s.lastErr = err
	s.attempt++
	var credErr *CredentialError
	if errors.As(err, &credErr) {
		return 0, false
	}
	if s.attempt >= s.maxAttempts {
		return 0, false
	}
	exponential := time.Duration(1<<uint(s.attempt-1)) * time.Second
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		backoff := exponential + time.Duration(s.jitter()*float64(time.Second))
		if backoff > rateLimitBackoffCap {
			backoff = rateLimitBackoffCap
		}
		return backoff, true
	}
	if exponential > transientBackoffCap {
		exponential = transientBackoffCap
	}
	return exponential, true
}

// terminal resolves the state into the error crossing the component
// boundary.
func (s *retryState) terminal() error {
	var credErr *CredentialError
	if errors.As(s.lastErr, &credErr) {
		return s.lastErr
	}
	return &RetriesExhaustedError{Attempts: s.attempt, Err: s.lastErr}
}

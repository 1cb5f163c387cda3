package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedProvider struct {
	errs  []error
	calls int
	dim   int
}

func (p *scriptedProvider) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(docs))
	for i := range out {
		vector := make([]float32, p.dim)
		vector[0] = 1
		out[i] = vector
	}
	return out, nil
}

func (p *scriptedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func newTestGenerator(provider Embedder, config Config, sleeps *[]time.Duration) *Generator {
	return NewGenerator(provider, config,
		WithSleep(func(ctx context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return nil
		}),
		WithJitter(func() float64 { return 0.5 }))
}

func TestEmbedDocumentsEmptyInput(t *testing.T) {
	provider := &scriptedProvider{dim: 4}
	gen := newTestGenerator(provider, Config{}, nil)
	vectors, err := gen.EmbedDocuments(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected empty result, got %d vectors", len(vectors))
	}
	if provider.calls != 0 {
		t.Fatalf("expected no provider call, got %d", provider.calls)
	}
}

func TestEmbedDocumentsRetriesThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{
		dim:  4,
		errs: []error{&TransientError{Err: errors.New("boom")}, &TransientError{Err: errors.New("boom")}, nil},
	}
	var sleeps []time.Duration
	gen := newTestGenerator(provider, Config{Dimension: 4}, &sleeps)
	vectors, err := gen.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.calls)
	}
	expected := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(sleeps) != len(expected) {
		t.Fatalf("expected %d sleeps, got %v", len(expected), sleeps)
	}
	for i := range expected {
		if sleeps[i] != expected[i] {
			t.Fatalf("sleep %d: expected %s, got %s", i, expected[i], sleeps[i])
		}
	}
}

func TestEmbedDocumentsExhaustionFallsBackToZeroVectors(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &TransientError{Err: errors.New("down")}
	}
	provider := &scriptedProvider{dim: 4, errs: errs}
	gen := newTestGenerator(provider, Config{MaxRetries: 3, Dimension: 8}, nil)
	vectors, err := gen.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("expected zero-vector fallback, got error: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", provider.calls)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, vector := range vectors {
		if len(vector) != 8 {
			t.Fatalf("vector %d: expected dimension 8, got %d", i, len(vector))
		}
		for j, value := range vector {
			if value != 0 {
				t.Fatalf("vector %d[%d]: expected zero, got %v", i, j, value)
			}
		}
	}
}

func TestEmbedDocumentsCredentialErrorNoRetry(t *testing.T) {
	provider := &scriptedProvider{
		dim:  4,
		errs: []error{&CredentialError{Err: errors.New("bad key")}},
	}
	gen := newTestGenerator(provider, Config{Dimension: 4}, nil)
	vectors, err := gen.EmbedDocuments(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("expected zero-vector fallback, got error: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", provider.calls)
	}
	if len(vectors) != 1 || len(vectors[0]) != 4 {
		t.Fatalf("expected one zero vector of dimension 4, got %v", vectors)
	}
}

func TestRateLimitBackoffJitterAndCap(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &RateLimitError{Err: errors.New("429")}
	}
	provider := &scriptedProvider{dim: 4, errs: errs}
	var sleeps []time.Duration
	gen := newTestGenerator(provider, Config{MaxRetries: 8, Dimension: 4}, &sleeps)
	if _, err := gen.EmbedDocuments(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if len(sleeps) != 7 {
		t.Fatalf("expected 7 sleeps, got %d", len(sleeps))
	}
	half := 500 * time.Millisecond
	expected := []time.Duration{
		1*time.Second + half,
		2*time.Second + half,
		4*time.Second + half,
		8*time.Second + half,
		16*time.Second + half,
		32*time.Second + half,
		60 * time.Second,
	}
	for i := range expected {
		if sleeps[i] != expected[i] {
			t.Fatalf("sleep %d: expected %s, got %s", i, expected[i], sleeps[i])
		}
	}
}

func TestTransientBackoffCap(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &TransientError{Err: errors.New("503")}
	}
	provider := &scriptedProvider{dim: 4, errs: errs}
	var sleeps []time.Duration
	gen := newTestGenerator(provider, Config{MaxRetries: 6, Dimension: 4}, &sleeps)
	if _, err := gen.EmbedDocuments(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	expected := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
	if len(sleeps) != len(expected) {
		t.Fatalf("expected %d sleeps, got %v", len(expected), sleeps)
	}
	for i := range expected {
		if sleeps[i] != expected[i] {
			t.Fatalf("sleep %d: expected %s, got %s", i, expected[i], sleeps[i])
		}
	}
}

func TestBackoffStopsOnCancellation(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &RateLimitError{Err: errors.New("429")}
	}
	provider := &scriptedProvider{dim: 4, errs: errs}
	gen := NewGenerator(provider, Config{Dimension: 4},
		WithJitter(func() float64 { return 0.5 }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := gen.EmbedQuery(ctx, "q")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("backoff ignored cancellation, took %s", elapsed)
	}
	if provider.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", provider.calls)
	}

	vectors, err := gen.EmbedDocuments(ctx, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected no zero-vector fallback on cancellation, got %v", vectors)
	}
}

func TestEmbedQueryFailsLoudly(t *testing.T) {
	provider := &scriptedProvider{
		dim:  4,
		errs: []error{&CredentialError{Err: errors.New("bad key")}},
	}
	gen := newTestGenerator(provider, Config{Dimension: 4}, nil)
	_, err := gen.EmbedQuery(context.Background(), "q")
	if err == nil {
		t.Fatal("expected query embedding error")
	}
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected credential error, got %v", err)
	}
}

func TestClassifyMessageSniffing(t *testing.T) {
	useCases := []struct {
		description string
		input       error
		check       func(error) bool
	}{
		{
			description: "rate limited by message",
			input:       errors.New("429 Too Many Requests"),
			check: func(err error) bool {
				var e *RateLimitError
				return errors.As(err, &e)
			},
		},
		{
			description: "credential by message",
			input:       errors.New("401 invalid api key"),
			check: func(err error) bool {
				var e *CredentialError
				return errors.As(err, &e)
			},
		},
		{
			description: "transient fallback",
			input:       errors.New("connection reset by peer"),
			check: func(err error) bool {
				var e *TransientError
				return errors.As(err, &e)
			},
		},
	}
	for _, useCase := range useCases {
		if !useCase.check(Classify(useCase.input)) {
			t.Fatalf("%s: misclassified %v", useCase.description, useCase.input)
		}
	}
}

func TestRetriesExhaustedErrorWrapsCause(t *testing.T) {
	cause := errors.New("down")
	err := &RetriesExhaustedError{Attempts: 5, Err: &TransientError{Err: cause}}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
}

package embeddings

import (
	"errors"
	"fmt"
	"strings"
)

// CredentialError marks a non-retryable credential or configuration
// failure from the embedding provider.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return fmt.Sprintf("credential error: %v", e.Err) }
func (e *CredentialError) Unwrap() error { return e.Err }

// RateLimitError marks an explicit throttling signal from the provider;
// retried with exponential backoff plus jitter.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return fmt.Sprintf("rate limited: %v", e.Err) }
func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientError marks any other retryable provider failure; retried with
// a shorter backoff than rate limits.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient provider error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// RetriesExhaustedError is terminal for a batch: all attempts failed.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
}
func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// Classify maps a provider call failure onto the retry taxonomy. Errors
// already carrying a class pass through unchanged; everything else is
// classified from HTTP-style status semantics in the message, defaulting
// to transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var credErr *CredentialError
	var rateErr *RateLimitError
	var transientErr *TransientError
	if errors.As(err, &credErr) || errors.As(err, &rateErr) || errors.As(err, &transientErr) {
		return err
	}
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "429"),
		strings.Contains(message, "rate limit"),
		strings.Contains(message, "too many requests"):
		return &RateLimitError{Err: err}
	case strings.Contains(message, "401"),
		strings.Contains(message, "403"),
		strings.Contains(message, "unauthorized"),
		strings.Contains(message, "api key"),
		strings.Contains(message, "credential"):
		return &CredentialError{Err: err}
	}
	return &TransientError{Err: err}
}

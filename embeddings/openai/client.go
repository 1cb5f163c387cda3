package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/brendon-colburn/medical-context-retrieval/embeddings"
)

const defaultEmbeddingModel = "text-embedding-3-large"

// Client wraps the public OpenAI embeddings API.
type Client struct {
	api   *openai.Client
	model string
}

func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, &embeddings.CredentialError{Err: errors.New("openai: OPENAI_API_KEY is not set")}
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &Client{api: openai.NewClient(apiKey), model: model}, nil
}

// EmbedDocuments creates one embedding per input text, in input order.
func (c *Client) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: docs,
	})
	if err != nil {
		return nil, classify(err)
	}
	out := make([][]float32, len(resp.Data))
	for i := range resp.Data {
		out[i] = resp.Data[i].Embedding
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai: no embedding data returned")
	}
	return vectors[0], nil
}

// classify maps go-openai API errors onto the retry taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return &embeddings.RateLimitError{Err: err}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &embeddings.CredentialError{Err: err}
		}
		return &embeddings.TransientError{Err: err}
	}
	return embeddings.Classify(err)
}

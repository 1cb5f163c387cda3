package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/brendon-colburn/medical-context-retrieval/embeddings"
)

const (
	embeddingsEndpointFmt = "%s/openai/deployments/%s/embeddings?api-version=%s"
	defaultAPIVersion     = "2024-08-01-preview"
	defaultDeployment     = "text-embedding-3-large"
	defaultHTTPClientTO   = 30 * time.Second
)

// Request represents the request structure for the Azure OpenAI embeddings API
type Request struct {
	Input []string `json:"input"`
}

// Response represents the response structure from the Azure OpenAI embeddings API
type Response struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  EmbeddingUsage  `json:"usage"`
}

// EmbeddingData represents a single embedding in the embeddings API response
type EmbeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingUsage represents token usage information in the embeddings API response
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type Client struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	HTTPClient *http.Client
}

func NewClient(endpoint, apiKey, deployment string) *Client {
	c := &Client{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Deployment: deployment,
		APIVersion: defaultAPIVersion,
		HTTPClient: &http.Client{Timeout: defaultHTTPClientTO},
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}
	if c.Deployment == "" {
		c.Deployment = defaultDeployment
	}
	return c
}

// Embed creates embeddings for the given texts
func (c *Client) Embed(ctx context.Context, texts []string) (vectors [][]float32, totalTokens int, err error) {
	if c.Endpoint == "" || c.APIKey == "" {
		return nil, 0, &embeddings.CredentialError{
			Err: fmt.Errorf("azure: AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required"),
		}
	}
	reqBody, err := json.Marshal(Request{Input: texts})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	URL := fmt.Sprintf(embeddingsEndpointFmt, c.Endpoint, c.Deployment, c.APIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, URL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, 0, &embeddings.TransientError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, classifyStatus(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	var embeddingResp Response
	if err := json.Unmarshal(data, &embeddingResp); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}
	out := make([][]float32, len(embeddingResp.Data))
	for i := range embeddingResp.Data {
		out[i] = embeddingResp.Data[i].Embedding
	}
	return out, embeddingResp.Usage.TotalTokens, nil
}

// classifyStatus maps an HTTP failure status to the retry taxonomy.
func classifyStatus(resp *http.Response) error {
	var errResp struct {
		Error struct{ Message, Type string } `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	apiErr := fmt.Errorf("API error: %s", resp.Status)
	if errResp.Error.Message != "" {
		apiErr = fmt.Errorf("API error (%s): %s", errResp.Error.Type, errResp.Error.Message)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &embeddings.RateLimitError{Err: apiErr}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &embeddings.CredentialError{Err: apiErr}
	}
	return &embeddings.TransientError{Err: apiErr}
}

// Embedder bridges the client to the embeddings.Embedder interface.
type Embedder struct{ C *Client }

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	v, _, err := e.C.Embed(ctx, docs)
	return v, err
}

func (e *Embedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	v, _, err := e.C.Embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return []float32{}, nil
	}
	return v[0], nil
}

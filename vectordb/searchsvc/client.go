// Package searchsvc implements the remote backend: a REST client for a
// managed vector-search service with an Azure-AI-Search-style API. The
// service normalizes vectors server-side; filter expressions are passed
// through verbatim.
package searchsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brendon-colburn/medical-context-retrieval/schema"
)

const (
	defaultAPIVersion      = "2024-07-01"
	defaultUploadBatchSize = 100
	defaultHTTPClientTO    = 30 * time.Second

	selectFields = "chunk_id,doc_id,doc_title,raw_chunk,ctx_header,augmented_chunk," +
		"section_path,source_org,source_url,pub_date,chunk_index"
)

// Config identifies the remote index and how to reach it. Credentials
// arrive already resolved; this client owns no credential lifecycle.
type Config struct {
	Endpoint        string
	IndexName       string
	APIKey          string
	APIVersion      string
	UploadBatchSize int
}

// Client talks to one remote search index.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient validates config and returns a client bound to one index.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" || config.APIKey == "" {
		return nil, fmt.Errorf("searchsvc: endpoint and api key are required")
	}
	if config.IndexName == "" {
		return nil, fmt.Errorf("searchsvc: index name is required")
	}
	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
	}
	if config.UploadBatchSize <= 0 {
		config.UploadBatchSize = defaultUploadBatchSize
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: defaultHTTPClientTO},
	}, nil
}

// indexDocument is the wire form of one uploaded chunk with its vector.
type indexDocument struct {
	Action         string    `json:"@search.action"`
	ChunkID        string    `json:"chunk_id"`
	DocID          string    `json:"doc_id"`
	DocTitle       string    `json:"doc_title"`
	RawChunk       string    `json:"raw_chunk"`
	CtxHeader      string    `json:"ctx_header"`
	AugmentedChunk string    `json:"augmented_chunk"`
	SectionPath    string    `json:"section_path"`
	SourceOrg      string    `json:"source_org"`
	SourceURL      string    `json:"source_url"`
	PubDate        string    `json:"pub_date"`
	ChunkIndex     int       `json:"chunk_index"`
	Embedding      []float32 `json:"embedding"`
}

// UploadResult reports per-item success or failure.
type UploadResult struct {
	Key          string `json:"key"`
	Succeeded    bool   `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

// Upload pushes chunk/vector pairs to the remote index in batches and
// returns the per-item results across all batches.
func (c *Client) Upload(ctx context.Context, chunks []schema.Chunk, vectors [][]float32) ([]UploadResult, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("searchsvc: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	documents := make([]indexDocument, len(chunks))
	for i, chunk := range chunks {
		documents[i] = indexDocument{
			Action:         "mergeOrUpload",
			ChunkID:        chunk.ID,
			DocID:          chunk.DocID,
			DocTitle:       chunk.DocTitle,
			RawChunk:       chunk.RawChunk,
			CtxHeader:      chunk.CtxHeader,
			AugmentedChunk: chunk.AugmentedChunk,
			SectionPath:    chunk.SectionPath,
			SourceOrg:      chunk.SourceOrg,
			SourceURL:      chunk.SourceURL,
			PubDate:        chunk.PubDate,
			ChunkIndex:     chunk.Index,
			Embedding:      vectors[i],
		}
	}
	var results []UploadResult
	batchSize := c.config.UploadBatchSize
	totalBatches := (len(documents) + batchSize - 1) / batchSize
	for i := 0; i < len(documents); i += batchSize {
		end := i + batchSize
		if end > len(documents) {
			end = len(documents)
		}
		batch, err := c.uploadBatch(ctx, documents[i:end])
		if err != nil {
			return results, err
		}
		succeeded := 0
		for _, item := range batch {
			if item.Succeeded {
				succeeded++
			} else {
				fmt.Printf("medctx: remote upload failed key=%s: %s\n", item.Key, item.ErrorMessage)
			}
		}
		fmt.Printf("medctx: remote upload batch %d/%d: %d succeeded, %d failed\n",
			i/batchSize+1, totalBatches, succeeded, len(batch)-succeeded)
		results = append(results, batch...)
	}
	return results, nil
}

func (c *Client) uploadBatch(ctx context.Context, documents []indexDocument) ([]UploadResult, error) {
	payload := struct {
		Value []indexDocument `json:"value"`
	}{Value: documents}
	var response struct {
		Value []UploadResult `json:"value"`
	}
	if err := c.post(ctx, c.docsURL("index"), payload, &response); err != nil {
		return nil, err
	}
	return response.Value, nil
}

// Hit is one remote search result.
type Hit struct {
	Score float32
	Chunk schema.Chunk
}

// searchDocument carries the selected fields plus the service score.
type searchDocument struct {
	Score          float32 `json:"@search.score"`
	ChunkID        string  `json:"chunk_id"`
	DocID          string  `json:"doc_id"`
	DocTitle       string  `json:"doc_title"`
	RawChunk       string  `json:"raw_chunk"`
	CtxHeader      string  `json:"ctx_header"`
	AugmentedChunk string  `json:"augmented_chunk"`
	SectionPath    string  `json:"section_path"`
	SourceOrg      string  `json:"source_org"`
	SourceURL      string  `json:"source_url"`
	PubDate        string  `json:"pub_date"`
	ChunkIndex     int     `json:"chunk_index"`
}

// Search runs a pure vector query and returns hits in service order.
// filter is passed through unmodified; empty means no filter.
func (c *Client) Search(ctx context.Context, vector []float32, topK int, filter string) ([]Hit, error) {
	type vectorQuery struct {
		Kind   string    `json:"kind"`
		Vector []float32 `json:"vector"`
		Fields string    `json:"fields"`
		K      int       `json:"k"`
	}
	payload := struct {
		Select        string        `json:"select"`
		Filter        string        `json:"filter,omitempty"`
		Top           int           `json:"top"`
		VectorQueries []vectorQuery `json:"vectorQueries"`
	}{
		Select: selectFields,
		Filter: filter,
		Top:    topK,
		VectorQueries: []vectorQuery{
			{Kind: "vector", Vector: vector, Fields: "embedding", K: topK},
		},
	}
	var response struct {
		Value []searchDocument `json:"value"`
	}
	if err := c.post(ctx, c.docsURL("search"), payload, &response); err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(response.Value))
	for _, doc := range response.Value {
		hits = append(hits, Hit{
			Score: doc.Score,
			Chunk: schema.Chunk{
				ID:             doc.ChunkID,
				DocID:          doc.DocID,
				DocTitle:       doc.DocTitle,
				RawChunk:       doc.RawChunk,
				CtxHeader:      doc.CtxHeader,
				AugmentedChunk: doc.AugmentedChunk,
				SectionPath:    doc.SectionPath,
				SourceOrg:      doc.SourceOrg,
				SourceURL:      doc.SourceURL,
				PubDate:        doc.PubDate,
				Index:          doc.ChunkIndex,
			},
		})
	}
	return hits, nil
}

// Count returns the number of documents in the remote index.
func (c *Client) Count(ctx context.Context) (int, error) {
	URL := fmt.Sprintf("%s/indexes/%s/docs/$count?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.IndexName, c.config.APIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.config.APIKey)
	httpReq.Header.Set("Accept", "text/plain")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("searchsvc: count failed: %s: %s", resp.Status, data)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("searchsvc: malformed count %q: %w", data, err)
	}
	return count, nil
}

// DeleteIndex removes the remote index definition and all its documents.
func (c *Client) DeleteIndex(ctx context.Context) error {
	URL := fmt.Sprintf("%s/indexes/%s?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.IndexName, c.config.APIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.config.APIKey)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("searchsvc: delete index failed: %s: %s", resp.Status, data)
	}
	return nil
}

func (c *Client) docsURL(operation string) string {
	return fmt.Sprintf("%s/indexes/%s/docs/%s?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.IndexName, operation, c.config.APIVersion)
}

func (c *Client) post(ctx context.Context, URL string, payload, response interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.config.APIKey)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("searchsvc: %s: %s", resp.Status, data)
	}
	if response == nil {
		return nil
	}
	if err := json.Unmarshal(data, response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

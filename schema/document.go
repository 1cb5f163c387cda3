package schema

// Document represents a source document prior to chunking.
type Document struct {
	ID        string `json:"doc_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url,omitempty"`
	SourceOrg string `json:"source_org,omitempty"`
	PubDate   string `json:"pub_date,omitempty"`
	// Fingerprint is a content hash recorded for diagnostics only; cache
	// validity never consults it.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Chunk is an immutable retrievable unit of text. Chunks are created once
// per ingestion pass and joined downstream by ID.
type Chunk struct {
	ID             string `json:"chunk_id"`
	DocID          string `json:"doc_id"`
	DocTitle       string `json:"doc_title"`
	RawChunk       string `json:"raw_chunk"`
	CtxHeader      string `json:"ctx_header,omitempty"`
	AugmentedChunk string `json:"augmented_chunk,omitempty"`
	SectionPath    string `json:"section_path,omitempty"`
	SourceOrg      string `json:"source_org,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	PubDate        string `json:"pub_date,omitempty"`
	Index          int    `json:"chunk_index"`
}

// EmbeddingText returns the text used for embedding: the augmented chunk
// when a context header was prepended, the raw chunk otherwise.
func (c *Chunk) EmbeddingText() string {
	if c.AugmentedChunk != "" {
		return c.AugmentedChunk
	}
	return c.RawChunk
}

// RetrievalResult is a single ranked similarity hit. Rank is 1-based and
// dense; Score is comparable only within one backend's score scale.
type RetrievalResult struct {
	Rank  int     `json:"rank"`
	Score float32 `json:"similarity_score"`
	Chunk
}

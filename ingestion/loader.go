// Package ingestion loads source material from storage: JSON document
// files, PDF payloads and pre-chunked corpus files. It performs boundary
// I/O only; chunk text is expected to arrive already split.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"

	"github.com/brendon-colburn/medical-context-retrieval/schema"
)

// Service loads documents and chunk corpora from afs locations.
type Service struct {
	fs afs.Service
}

// New creates an ingestion service.
func New() *Service {
	return &Service{fs: afs.New()}
}

// LoadDocuments walks baseURL and returns one Document per supported
// file: .json files carry document fields, .pdf files are extracted to
// text. Missing ids are assigned and fingerprints are always recomputed.
func (s *Service) LoadDocuments(ctx context.Context, baseURL string) ([]schema.Document, error) {
	objects, err := s.fs.List(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", baseURL, err)
	}
	var documents []schema.Document
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(object.Name()))
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", object.URL(), err)
		}
		switch ext {
		case ".json":
			loaded, err := decodeDocuments(data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", object.URL(), err)
			}
			documents = append(documents, loaded...)
		case ".pdf":
			text := extractPDFText(data)
			documents = append(documents, schema.Document{
				Title:     strings.TrimSuffix(object.Name(), path.Ext(object.Name())),
				Content:   string(text),
				SourceURL: object.URL(),
			})
		}
	}
	for i := range documents {
		if documents[i].ID == "" {
			documents[i].ID = strings.ReplaceAll(uuid.New().String(), "-", "")
		}
		fingerprint, err := Fingerprint([]byte(documents[i].Content))
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint %s: %w", documents[i].ID, err)
		}
		documents[i].Fingerprint = fingerprint
	}
	return documents, nil
}

// decodeDocuments accepts either a single document object or an array.
func decodeDocuments(data []byte) ([]schema.Document, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var documents []schema.Document
		if err := json.Unmarshal(data, &documents); err != nil {
			return nil, err
		}
		return documents, nil
	}
	var document schema.Document
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	return []schema.Document{document}, nil
}

// LoadChunks reads a pre-chunked corpus file and returns chunks with
// ids assigned where missing.
func (s *Service) LoadChunks(ctx context.Context, URL string) ([]schema.Chunk, error) {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", URL, err)
	}
	var chunks []schema.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", URL, err)
	}
	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = strings.ReplaceAll(uuid.New().String(), "-", "")
		}
	}
	return chunks, nil
}

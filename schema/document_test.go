package schema

import "testing"

func TestChunkEmbeddingText(t *testing.T) {
	chunk := Chunk{RawChunk: "raw text"}
	if chunk.EmbeddingText() != "raw text" {
		t.Fatalf("expected raw text, got %q", chunk.EmbeddingText())
	}
	chunk.AugmentedChunk = "context: raw text"
	if chunk.EmbeddingText() != "context: raw text" {
		t.Fatalf("expected augmented text preferred, got %q", chunk.EmbeddingText())
	}
}

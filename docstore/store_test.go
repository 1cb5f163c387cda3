package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/brendon-colburn/medical-context-retrieval/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertDocumentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	doc := schema.Document{ID: "d1", Title: "Hypertension", SourceOrg: "WHO", Fingerprint: "aa"}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument failed: %v", err)
	}
	doc.Fingerprint = "bb"
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument failed: %v", err)
	}
	documents, _, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if documents != 1 {
		t.Fatalf("expected 1 document, got %d", documents)
	}
	fingerprint, err := store.Fingerprint(ctx, "d1")
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fingerprint != "bb" {
		t.Fatalf("expected refreshed fingerprint, got %q", fingerprint)
	}
}

func TestFingerprintUnknownDocument(t *testing.T) {
	store := openTestStore(t)
	fingerprint, err := store.Fingerprint(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fingerprint != "" {
		t.Fatalf("expected empty fingerprint, got %q", fingerprint)
	}
}

func TestUpsertChunksAndLoadOrdered(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	chunks := []schema.Chunk{
		{ID: "c2", DocID: "d1", Index: 2, RawChunk: "third"},
		{ID: "c0", DocID: "d1", Index: 0, RawChunk: "first"},
		{ID: "c1", DocID: "d1", Index: 1, RawChunk: "second"},
		{ID: "x0", DocID: "d2", Index: 0, RawChunk: "other doc"},
	}
	if err := store.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks failed: %v", err)
	}
	loaded, err := store.Chunks(ctx, "d1")
	if err != nil {
		t.Fatalf("Chunks failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(loaded))
	}
	for i, chunk := range loaded {
		if chunk.Index != i {
			t.Fatalf("chunks out of order: %+v", loaded)
		}
	}

	// re-upsert with changed text must not duplicate
	chunks[0].RawChunk = "revised"
	if err := store.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks failed: %v", err)
	}
	_, total, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 chunks after re-upsert, got %d", total)
	}
}

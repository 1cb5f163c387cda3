package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brendon-colburn/medical-context-retrieval/vectordb/index"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medctx.yaml")
	content := `
provider: azure
azure:
  endpoint: https://example.openai.azure.com
  deployment: text-embedding-3-large
embedding:
  dimension: 3072
  maxRetries: 5
backend:
  mode: remote
  search:
    endpoint: https://example.search.windows.net
    indexName: med-chunks
cache:
  baseURL: /tmp/medctx-cache
indexing:
  strategy: flat
  batchSize: 5
  batchDelaySeconds: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg, err := LoadConfig(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Provider != "azure" || cfg.Azure.Endpoint == "" {
		t.Fatalf("provider config lost: %+v", cfg)
	}
	if !cfg.Backend.IsRemote() {
		t.Fatal("expected remote backend mode")
	}
	if cfg.Indexing.IndexStrategy() != index.StrategyFlat {
		t.Fatalf("expected flat strategy, got %s", cfg.Indexing.IndexStrategy())
	}
	if cfg.Indexing.BatchDelay().Seconds() != 2 {
		t.Fatalf("expected 2s batch delay, got %s", cfg.Indexing.BatchDelay())
	}
	if cfg.Embedding.Dimension != 3072 {
		t.Fatalf("expected dimension 3072, got %d", cfg.Embedding.Dimension)
	}
}

func TestIndexStrategyDefaults(t *testing.T) {
	useCases := []struct {
		input    string
		expected index.Strategy
	}{
		{input: "", expected: index.StrategyAuto},
		{input: "auto", expected: index.StrategyAuto},
		{input: "flat", expected: index.StrategyFlat},
		{input: "IVF", expected: index.StrategyIVF},
		{input: "clustered", expected: index.StrategyIVF},
		{input: "nonsense", expected: index.StrategyAuto},
	}
	for _, useCase := range useCases {
		cfg := IndexingConfig{Strategy: useCase.input}
		if actual := cfg.IndexStrategy(); actual != useCase.expected {
			t.Fatalf("strategy %q: expected %s, got %s", useCase.input, useCase.expected, actual)
		}
	}
}

func TestParseCSV(t *testing.T) {
	useCases := []struct {
		input    string
		expected []string
	}{
		{input: "", expected: nil},
		{input: "WHO", expected: []string{"WHO"}},
		{input: " WHO , CDC ,", expected: []string{"WHO", "CDC"}},
	}
	for _, useCase := range useCases {
		actual := ParseCSV(useCase.input)
		if len(actual) != len(useCase.expected) {
			t.Fatalf("ParseCSV(%q): expected %v, got %v", useCase.input, useCase.expected, actual)
		}
		for i := range actual {
			if actual[i] != useCase.expected[i] {
				t.Fatalf("ParseCSV(%q): expected %v, got %v", useCase.input, useCase.expected, actual)
			}
		}
	}
}

func TestExpandUserPathPlain(t *testing.T) {
	if out, err := expandUserPath("/var/lib/medctx"); err != nil || out != "/var/lib/medctx" {
		t.Fatalf("plain path must pass through, got %q, %v", out, err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	out, err := expandUserPath("~/medctx")
	if err != nil {
		t.Fatalf("expandUserPath failed: %v", err)
	}
	if out != filepath.Join(home, "medctx") {
		t.Fatalf("unexpected expansion %q", out)
	}
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"

	"github.com/brendon-colburn/medical-context-retrieval/vectordb/index"
)

// Config wires providers, backend mode and storage locations.
type Config struct {
	Provider  string          `yaml:"provider"`
	Azure     AzureConfig     `yaml:"azure"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Backend   BackendConfig   `yaml:"backend"`
	Cache     CacheConfig     `yaml:"cache"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Indexing  IndexingConfig  `yaml:"indexing"`
}

// AzureConfig defines the Azure OpenAI embedding provider.
type AzureConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"apiKey"`
	Deployment string `yaml:"deployment"`
	Secret     string `yaml:"secret,omitempty"`
}

// OpenAIConfig defines the public OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
	Secret string `yaml:"secret,omitempty"`
}

// EmbeddingConfig controls retry and dimension settings.
type EmbeddingConfig struct {
	Dimension  int `yaml:"dimension"`
	MaxRetries int `yaml:"maxRetries"`
}

// BackendConfig selects the vector search destination.
type BackendConfig struct {
	// Mode is "local" or "remote"; empty means local.
	Mode   string       `yaml:"mode"`
	Search SearchConfig `yaml:"search"`
}

// SearchConfig defines the remote vector-search service.
type SearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	IndexName  string `yaml:"indexName"`
	APIKey     string `yaml:"apiKey"`
	APIVersion string `yaml:"apiVersion"`
	Secret     string `yaml:"secret,omitempty"`
}

// CacheConfig locates persisted build artifacts.
type CacheConfig struct {
	BaseURL string `yaml:"baseURL"`
}

// CatalogConfig locates the sqlite document catalog; empty disables it.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// IndexingConfig controls batching and index layout.
type IndexingConfig struct {
	Strategy          string `yaml:"strategy"`
	BatchSize         int    `yaml:"batchSize"`
	BatchDelaySeconds int    `yaml:"batchDelaySeconds"`
}

// BatchDelay returns the configured inter-batch pause.
func (c *IndexingConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelaySeconds) * time.Second
}

// IndexStrategy returns the configured strategy, defaulting to auto.
func (c *IndexingConfig) IndexStrategy() index.Strategy {
	switch strings.ToLower(strings.TrimSpace(c.Strategy)) {
	case "flat":
		return index.StrategyFlat
	case "ivf", "clustered":
		return index.StrategyIVF
	}
	return index.StrategyAuto
}

// IsRemote reports whether vectors live in the remote search service.
func (c *BackendConfig) IsRemote() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), "remote")
}

// LoadConfig reads a yaml config, expanding ~ paths and secret refs.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Cache.BaseURL != "" {
		if cfg.Cache.BaseURL, err = expandUserPath(cfg.Cache.BaseURL); err != nil {
			return nil, err
		}
	}
	if cfg.Catalog.Path != "" {
		if cfg.Catalog.Path, err = expandUserPath(cfg.Catalog.Path); err != nil {
			return nil, err
		}
	}
	if cfg.Azure.Secret != "" {
		if cfg.Azure.APIKey, err = expandWithSecret(ctx, cfg.Azure.APIKey, cfg.Azure.Secret); err != nil {
			return nil, err
		}
	}
	if cfg.OpenAI.Secret != "" {
		if cfg.OpenAI.APIKey, err = expandWithSecret(ctx, cfg.OpenAI.APIKey, cfg.OpenAI.Secret); err != nil {
			return nil, err
		}
	}
	if cfg.Backend.Search.Secret != "" {
		if cfg.Backend.Search.APIKey, err = expandWithSecret(ctx, cfg.Backend.Search.APIKey, cfg.Backend.Search.Secret); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return path, nil
	}
	if trimmed[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if trimmed == "~" {
		return home, nil
	}
	if !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	return filepath.Join(home, trimmed[2:]), nil
}

// expandWithSecret loads a secret and expands placeholders in value.
func expandWithSecret(ctx context.Context, value, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return value, nil
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("secret %q provided but value is empty", secretRef)
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.Expand(value), nil
}

// Package config provides configuration loading for repoloader.
package config

import (
	"fmt"

	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
)

// Config is the root configuration for repoloader.
type Config struct {
	Loader     LoaderConfig     `koanf:"loader"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Chat       ChatConfig       `koanf:"chat"`
	Logging    logging.Config   `koanf:"logging"`
}

// LoaderConfig controls repository traversal and chunking.
type LoaderConfig struct {
	ChunkSize       int      `koanf:"chunk_size"`
	ChunkOverlap    int      `koanf:"chunk_overlap"`
	RootMarker      string   `koanf:"root_marker"`
	Workers         int      `koanf:"workers"`
	IncludePatterns []string `koanf:"include_patterns"`
	ExcludePatterns []string `koanf:"exclude_patterns"`
	UseIgnoreFiles  bool     `koanf:"use_ignore_files"`
}

// EmbeddingsConfig holds Azure OpenAI embedding settings.
type EmbeddingsConfig struct {
	BaseURL    string `koanf:"base_url"`
	APIKey     Secret `koanf:"api_key"`
	Model      string `koanf:"model"`
	APIVersion string `koanf:"api_version"`
}

// QdrantConfig holds vector store connection and collection settings.
type QdrantConfig struct {
	Host           string   `koanf:"host"`
	Port           int      `koanf:"port"`
	CollectionName string   `koanf:"collection_name"`
	VectorSize     uint64   `koanf:"vector_size"`
	MaxRetries     int      `koanf:"max_retries"`
	RetryBackoff   Duration `koanf:"retry_backoff"`
}

// ChatConfig holds the completion model used for question answering.
type ChatConfig struct {
	Model string `koanf:"model"`
}

// Validate checks structural configuration invariants. Credentials are
// validated separately by the components that need them, so offline
// commands like export can run without any Azure settings.
func (c *Config) Validate() error {
	if c.Loader.ChunkSize <= 0 {
		return fmt.Errorf("loader.chunk_size must be positive, got %d", c.Loader.ChunkSize)
	}
	if c.Loader.ChunkOverlap < 0 {
		return fmt.Errorf("loader.chunk_overlap cannot be negative, got %d", c.Loader.ChunkOverlap)
	}
	if c.Loader.ChunkOverlap >= c.Loader.ChunkSize {
		return fmt.Errorf("loader.chunk_overlap (%d) must be smaller than loader.chunk_size (%d)",
			c.Loader.ChunkOverlap, c.Loader.ChunkSize)
	}
	if c.Loader.Workers <= 0 {
		return fmt.Errorf("loader.workers must be positive, got %d", c.Loader.Workers)
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant.port must be in 1..65535, got %d", c.Qdrant.Port)
	}
	if c.Qdrant.CollectionName == "" {
		return fmt.Errorf("qdrant.collection_name cannot be empty")
	}
	if c.Qdrant.VectorSize == 0 {
		return fmt.Errorf("qdrant.vector_size must be positive")
	}
	if c.Qdrant.MaxRetries < 0 {
		return fmt.Errorf("qdrant.max_retries cannot be negative, got %d", c.Qdrant.MaxRetries)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Validate checks that the embedding credentials are present. Called by
// components that actually reach the embedding API.
func (e *EmbeddingsConfig) Validate() error {
	if e.BaseURL == "" {
		return fmt.Errorf("embeddings.base_url is required (or set AZURE_EMBEDDINGS_BASE_URL)")
	}
	if !e.APIKey.IsSet() {
		return fmt.Errorf("embeddings.api_key is required (or set AZURE_EMBEDDINGS_API_KEY)")
	}
	if e.Model == "" {
		return fmt.Errorf("embeddings.model cannot be empty")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/casablancahotelsoftware/tech-lab/internal/loader"
	"github.com/casablancahotelsoftware/tech-lab/internal/splitter"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// DefaultRootMarker is the path component that anchors repository
	// relative source paths.
	DefaultRootMarker = "CleanArchitecture"

	// DefaultCollectionName is the qdrant collection documents land in
	// unless overridden.
	DefaultCollectionName = "documents"

	// DefaultVectorSize matches the text-embedding-3-large output width.
	DefaultVectorSize = 3072

	DefaultEmbeddingModel = "text-embedding-3-large"
	DefaultAPIVersion     = "2024-12-01-preview"
	DefaultChatModel      = "gpt-4.1-mini"
)

// Load builds a Config from an optional YAML file, environment variables
// and built-in defaults.
//
// Precedence (highest to lowest):
//  1. Environment variables (LOADER_CHUNK_SIZE, QDRANT_COLLECTION_NAME, ...)
//  2. YAML config file
//  3. Built-in defaults
//
// configPath names the YAML file to load; when empty the default path
// ~/.config/repoloader/config.yaml is used, and a missing file there is
// not an error. The Azure credential variables AZURE_EMBEDDINGS_BASE_URL
// and AZURE_EMBEDDINGS_API_KEY are honored as fallbacks for the
// embeddings section.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "repoloader", "config.yaml")
	}

	if _, err := os.Stat(configPath); err != nil {
		// The default path may simply not exist; anything else, or an
		// explicitly requested file, is an error worth surfacing.
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	} else {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment variables are uppercased section_field names:
	//   LOADER_CHUNK_SIZE      -> loader.chunk_size
	//   EMBEDDINGS_BASE_URL    -> embeddings.base_url
	//   QDRANT_COLLECTION_NAME -> qdrant.collection_name
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvFallbacks(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envTransform maps an environment variable name onto a config key using
// the first underscore as the section separator. Underscores inside the
// field name are kept.
func envTransform(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// applyEnvFallbacks wires the Azure credential variable names used by the
// deployment environment into the embeddings section.
func applyEnvFallbacks(cfg *Config) {
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = os.Getenv("AZURE_EMBEDDINGS_BASE_URL")
	}
	if !cfg.Embeddings.APIKey.IsSet() {
		cfg.Embeddings.APIKey = Secret(os.Getenv("AZURE_EMBEDDINGS_API_KEY"))
	}
}

// applyDefaults fills in zero values with built-in defaults.
func applyDefaults(cfg *Config) {
	if cfg.Loader.ChunkSize == 0 {
		cfg.Loader.ChunkSize = splitter.DefaultChunkSize
	}
	if cfg.Loader.ChunkOverlap == 0 {
		cfg.Loader.ChunkOverlap = splitter.DefaultOverlap
	}
	if cfg.Loader.RootMarker == "" {
		cfg.Loader.RootMarker = DefaultRootMarker
	}
	if cfg.Loader.Workers == 0 {
		cfg.Loader.Workers = loader.DefaultWorkers
	}
	if len(cfg.Loader.IncludePatterns) == 0 {
		cfg.Loader.IncludePatterns = append([]string(nil), loader.DefaultIncludePatterns...)
	}
	if len(cfg.Loader.ExcludePatterns) == 0 {
		cfg.Loader.ExcludePatterns = append([]string(nil), loader.DefaultExcludePatterns...)
	}

	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = DefaultEmbeddingModel
	}
	if cfg.Embeddings.APIVersion == "" {
		cfg.Embeddings.APIVersion = DefaultAPIVersion
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.CollectionName == "" {
		cfg.Qdrant.CollectionName = DefaultCollectionName
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = DefaultVectorSize
	}
	if cfg.Qdrant.MaxRetries == 0 {
		cfg.Qdrant.MaxRetries = 3
	}
	if cfg.Qdrant.RetryBackoff == 0 {
		cfg.Qdrant.RetryBackoff = Duration(500 * time.Millisecond)
	}

	if cfg.Chat.Model == "" {
		cfg.Chat.Model = DefaultChatModel
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = map[string]string{"service": "repoloader"}
	}
}

// readConfigFile opens, validates and reads a config file through a
// single file descriptor to avoid a stat/open race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm&0o077 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or stricter)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

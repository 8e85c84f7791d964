// Package config loads the librarium configuration from YAML with
// LIBRARIUM_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete librarium configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	LogLevel   string           `yaml:"log_level"`
}

// StorageConfig locates the knowledge base on disk.
type StorageConfig struct {
	// Root is the knowledge base directory (default: ~/.librarium).
	Root string `yaml:"root"`
}

// ChunkingConfig selects the splitting strategy and its parameters.
type ChunkingConfig struct {
	// Strategy is "lines" or "recursive".
	Strategy string `yaml:"strategy"`

	// Size and Overlap are lines for the lines strategy, characters for
	// the recursive strategy. Ignored when Auto is set.
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`

	// Auto picks recursive-strategy parameters from document length.
	Auto bool `yaml:"auto"`
}

// SearchConfig tunes retrieval defaults.
type SearchConfig struct {
	// RRFConstant is the fusion smoothing parameter (default 60).
	RRFConstant int `yaml:"rrf_constant"`

	// DefaultStrategy is hybrid, bm25, or vector.
	DefaultStrategy string `yaml:"default_strategy"`

	// DefaultTopK is the result count when a query does not set one.
	DefaultTopK int `yaml:"default_top_k"`

	// SimilarityThreshold drops vector results below this cosine
	// similarity. Zero disables the threshold.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider string `yaml:"provider"`

	// Model is the Ollama model name (ignored by the static provider).
	Model string `yaml:"model"`

	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Root: defaultRoot()},
		Chunking: ChunkingConfig{
			Strategy: "lines",
			Size:     80,
			Overlap:  20,
		},
		Search: SearchConfig{
			RRFConstant:     60,
			DefaultStrategy: "hybrid",
			DefaultTopK:     10,
		},
		Embeddings: EmbeddingsConfig{
			Provider: "ollama",
		},
		LogLevel: "info",
	}
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".librarium"
	}
	return filepath.Join(home, ".librarium")
}

// Load reads the config file at path, applies environment overrides, and
// validates. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets LIBRARIUM_* variables override file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("LIBRARIUM_STORAGE_ROOT"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("LIBRARIUM_CHUNK_STRATEGY"); v != "" {
		c.Chunking.Strategy = v
	}
	if v := os.Getenv("LIBRARIUM_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Size = n
		}
	}
	if v := os.Getenv("LIBRARIUM_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("LIBRARIUM_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("LIBRARIUM_SEARCH_STRATEGY"); v != "" {
		c.Search.DefaultStrategy = v
	}
	if v := os.Getenv("LIBRARIUM_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("LIBRARIUM_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("LIBRARIUM_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("LIBRARIUM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root must not be empty")
	}

	switch c.Chunking.Strategy {
	case "lines", "recursive":
	default:
		return fmt.Errorf("chunking.strategy must be \"lines\" or \"recursive\", got %q", c.Chunking.Strategy)
	}
	if !c.Chunking.Auto {
		if c.Chunking.Size <= 0 {
			return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
		}
		if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
			return fmt.Errorf("chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap)
		}
	}

	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	switch strings.ToLower(c.Search.DefaultStrategy) {
	case "hybrid", "bm25", "vector":
	default:
		return fmt.Errorf("search.default_strategy must be hybrid, bm25, or vector, got %q", c.Search.DefaultStrategy)
	}
	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("search.default_top_k must be positive, got %d", c.Search.DefaultTopK)
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarity_threshold must be in [0, 1], got %g", c.Search.SimilarityThreshold)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "ollama", "static":
	default:
		return fmt.Errorf("embeddings.provider must be \"ollama\" or \"static\", got %q", c.Embeddings.Provider)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

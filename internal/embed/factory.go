package embed

import (
	"context"
	"os"
	"strings"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses the Ollama API for embeddings (default)
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings (no external service)
	ProviderStatic ProviderType = "static"
)

// NewEmbedder creates an embedder for the given provider. The
// LIBRARIUM_EMBEDDER environment variable overrides the provider, and
// LIBRARIUM_EMBED_CACHE=false disables the query cache wrapper.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	if env := os.Getenv("LIBRARIUM_EMBEDDER"); env != "" {
		provider = ParseProvider(env)
	}

	var embedder Embedder
	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder()
	default:
		cfg := DefaultOllamaConfig()
		if model != "" {
			cfg.Model = model
		}
		if host := os.Getenv("LIBRARIUM_OLLAMA_HOST"); host != "" {
			cfg.Host = host
		}
		ollama, err := NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		embedder = ollama
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedder(embedder, DefaultEmbeddingCacheSize)
	}

	return embedder, nil
}

// isCacheDisabled checks if the embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("LIBRARIUM_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off"
}

// ParseProvider converts a string to a ProviderType, defaulting to Ollama.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

// String returns the string representation of the provider.
func (p ProviderType) String() string {
	return string(p)
}

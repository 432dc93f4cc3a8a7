package embed

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType names an embedding backend.
type ProviderType string

const (
	// ProviderStatic is the offline hash embedder.
	ProviderStatic ProviderType = "static"

	// ProviderOllama calls a local Ollama server.
	ProviderOllama ProviderType = "ollama"
)

// FactoryConfig selects and configures an embedder.
type FactoryConfig struct {
	Provider   string
	Host       string
	Model      string
	Dimensions int
	Timeout    time.Duration
	CacheSize  int // 0 disables the query cache
}

// NewEmbedder builds the configured embedder, wrapped in a CachedEmbedder
// when CacheSize > 0.
func NewEmbedder(cfg FactoryConfig) (Embedder, error) {
	var e Embedder
	switch ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider))) {
	case "", ProviderStatic:
		e = NewStaticEmbedder()
	case ProviderOllama:
		e = NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}

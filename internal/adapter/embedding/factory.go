package embedding

import (
	"fmt"

	"docsearch/config"
	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// New builds the embedder described by cfg, wrapped in a query cache
// unless CacheSize is zero.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	var base port.Embedder
	switch cfg.Provider {
	case "ollama":
		base = NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "openai":
		apiKeyEnv := cfg.APIKeyEnv
		if apiKeyEnv == "" {
			apiKeyEnv = "OPENAI_API_KEY"
		}
		e, err := NewOpenAICompatibleEmbedder(apiKeyEnv, cfg.Model, cfg.BaseURL, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		base = e
	case "hash":
		base = NewHashEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, cfg.Provider)
	}

	if cfg.CacheSize == 0 {
		return base, nil
	}
	return NewCachedEmbedder(base, cfg.CacheSize), nil
}

package provider

import (
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/petasbytes/paper-agent/internal/config"
)

// Embedding returns the chromem embedding function selected by cfg.
// Both built-in functions return normalized vectors.
func Embedding(cfg config.EmbeddingConfig) (chromem.EmbeddingFunc, error) {
	cfg = cfg.WithDefaults()
	switch cfg.Provider {
	case config.EmbeddingOllama:
		return chromem.NewEmbeddingFuncOllama(cfg.Model, cfg.BaseURL), nil
	case config.EmbeddingOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider: openai embeddings need an API key")
		}
		return chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(cfg.Model)), nil
	default:
		return nil, fmt.Errorf("provider: unknown embedding provider %q", cfg.Provider)
	}
}

// Package embedding provides the embedding providers behind port.Embedder.
package embedding

import (
	"context"
	"fmt"
	"os"

	"paperrag/config"
	"paperrag/internal/port"
)

// New builds the embedder selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "googleai":
		return NewGoogleAIEmbedder(ctx, os.Getenv(cfg.APIKeyEnv), cfg.Model, cfg.Dimension)
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "openai":
		return NewOpenAIEmbedder(os.Getenv(cfg.APIKeyEnv), cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "mock":
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

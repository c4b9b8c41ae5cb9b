package rag

import (
	"context"
	"fmt"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/providers/llm"
)

// NewEmbedder builds the configured embedder behind a cache.
func NewEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (*CachedEmbedder, error) {
	var base interface {
		Embed(ctx context.Context, text string) ([]float32, error)
		Model() string
	}

	switch cfg.Provider {
	case config.EmbeddingHash, "":
		base = NewHashEmbedder(cfg.Dim)
	case config.EmbeddingOpenAI, config.EmbeddingOllama, config.EmbeddingCustom:
		client, err := llm.NewEmbeddingClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		base = NewRemoteEmbedder(client, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	return NewCachedEmbedder(base, cfg.CacheSize)
}

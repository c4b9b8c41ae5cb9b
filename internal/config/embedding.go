package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/memobot/pkg/log"
)

const (
	EmbeddingOpenAI = "openai"
	EmbeddingOllama = "ollama"
	EmbeddingCustom = "custom"
	EmbeddingHash   = "hash"
)

type EmbeddingConfig struct {
	Provider  string `env:"MEMO_EMBEDDING_PROVIDER" envDefault:"hash"`
	Model     string `env:"MEMO_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	BaseURL   string `env:"MEMO_EMBEDDING_BASE_URL"`
	APIKey    string `env:"MEMO_EMBEDDING_API_KEY"`
	Dim       int    `env:"MEMO_EMBEDDING_DIM" envDefault:"256"`
	MaxTokens int    `env:"MEMO_EMBEDDING_MAX_TOKENS" envDefault:"8000"`
	CacheSize int64  `env:"MEMO_EMBEDDING_CACHE_SIZE" envDefault:"2048"`
}

func NewEmbeddingConfig(ctx context.Context) *EmbeddingConfig {
	c := &EmbeddingConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Embedding config")
	}
	return c
}

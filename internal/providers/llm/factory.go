package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/pkg/log"
)

// NewProvider creates the chat client used by the LLM intent parser.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (*OpenAICompatible, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	return newClient(cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Model, true)
}

// NewEmbeddingClient creates the client behind the remote embedding provider.
func NewEmbeddingClient(ctx context.Context, cfg *config.EmbeddingConfig) (*OpenAICompatible, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting embedding provider")

	return newClient(cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Model, false)
}

func newClient(provider, baseURL, apiKey, model string, jsonMode bool) (*OpenAICompatible, error) {
	switch provider {
	case "openai":
		return NewOpenAI(apiKey, model, jsonMode), nil
	case "openrouter":
		return NewOpenRouter(apiKey, model, jsonMode), nil
	case "ollama":
		return NewOllama(baseURL, apiKey, model, jsonMode), nil
	case "custom":
		if baseURL == "" {
			return nil, fmt.Errorf("custom provider requires a base url")
		}
		return NewCustomOpenAI(baseURL, apiKey, model, jsonMode), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sandevgo/memobot/internal/core"
)

// OpenAICompatible speaks the /v1/chat/completions and /v1/embeddings
// dialect shared by OpenAI, OpenRouter, Ollama and most self-hosted gateways.
type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
	jsonMode     bool
}

type OpenAICompatibleConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
	// JSONMode asks the backend for a JSON object response.
	JSONMode bool
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
		jsonMode:     cfg.JSONMode,
	}
}

func (o *OpenAICompatible) Model() string {
	return o.model
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	payload := map[string]any{
		"model":       o.model,
		"messages":    history,
		"temperature": 0,
	}
	if o.jsonMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload, o.headers())
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	var result struct {
		Choices []struct {
			Message core.Message `json:"message"`
		} `json:"choices"`
	}
	if err := readJSON(resp, &result); err != nil {
		return core.Message{}, err
	}
	if len(result.Choices) == 0 {
		return core.Message{}, fmt.Errorf("empty choices")
	}
	return result.Choices[0].Message, nil
}

// Embed returns the embedding of a single input.
func (o *OpenAICompatible) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model": o.model,
		"input": text,
	}

	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/embeddings", payload, o.headers())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := readJSON(resp, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return result.Data[0].Embedding, nil
}

func (o *OpenAICompatible) headers() map[string]string {
	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}
	return headers
}

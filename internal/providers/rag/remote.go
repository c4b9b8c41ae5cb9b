package rag

import (
	"context"
	"errors"

	"github.com/sandevgo/memobot/internal/core"
)

type embeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// RemoteEmbedder calls an OpenAI-compatible /v1/embeddings endpoint. Every
// failure is reported as a dependency outage so callers degrade instead of
// dropping the capture.
type RemoteEmbedder struct {
	client    embeddingClient
	maxTokens int
}

func NewRemoteEmbedder(client embeddingClient, maxTokens int) *RemoteEmbedder {
	return &RemoteEmbedder{client: client, maxTokens: maxTokens}
}

func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("empty text")
	}
	vec, err := e.client.Embed(ctx, Truncate(text, e.maxTokens))
	if err != nil {
		return nil, core.Unavailable("embedding provider", err)
	}
	return vec, nil
}

func (e *RemoteEmbedder) Model() string {
	return e.client.Model()
}

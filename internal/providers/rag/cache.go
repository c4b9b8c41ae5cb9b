package rag

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/dgraph-io/ristretto"
	"github.com/sandevgo/memobot/internal/core"
)

// CachedEmbedder memoises embeddings by model and text. Retried captures and
// the reconciliation sweep hit it instead of the provider.
type CachedEmbedder struct {
	next  core.Embedder
	cache *ristretto.Cache
}

func NewCachedEmbedder(next core.Embedder, size int64) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if v, ok := c.cache.Get(key); ok {
		return v.([]float32), nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec, 1)
	return vec, nil
}

func (c *CachedEmbedder) Model() string {
	return c.next.Model()
}

// Wait blocks until buffered writes are visible to Get.
func (c *CachedEmbedder) Wait() {
	c.cache.Wait()
}

func (c *CachedEmbedder) Close() {
	c.cache.Close()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha1.Sum([]byte(text))
	return c.next.Model() + ":" + hex.EncodeToString(sum[:])
}

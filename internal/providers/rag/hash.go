package rag

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/sandevgo/memobot/pkg/conv"
)

// HashEmbedder is an offline embedder based on feature hashing of normalised
// words and their character trigrams. It is deterministic and needs no
// network, at the cost of only catching lexical similarity.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-%d", e.dim)
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	words := conv.Tokens(text)
	if len(words) == 0 {
		words = conv.Words(text)
	}
	if len(words) == 0 {
		return nil, errors.New("nothing to embed")
	}

	vec := make([]float32, e.dim)
	for _, w := range words {
		e.add(vec, "w:"+w, 1)
		r := []rune("^" + w + "$")
		for i := 0; i+3 <= len(r); i++ {
			e.add(vec, "g:"+string(r[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(e.dim)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDim is the default embedding dimensionality, matching the
// all-MiniLM-L6-v2 sentence embedding model.
const DefaultDim = 384

// LocalEmbedder is a deterministic hash-projection embedder. Each word token
// is hashed into a bucket with a hash-derived sign and the resulting vector is
// L2-normalized, so texts sharing vocabulary score higher under cosine
// similarity. It needs no network access and is the provider used by tests
// and offline runs.
type LocalEmbedder struct {
	dim int
}

// NewLocalEmbedder creates a LocalEmbedder with the given dimensionality.
// Non-positive dim falls back to DefaultDim.
func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &LocalEmbedder{dim: dim}
}

// Dim returns the fixed dimensionality of produced vectors.
func (e *LocalEmbedder) Dim() int { return e.dim }

// EmbedQuery embeds a single text. Empty input is well-defined and returns a
// fixed unit vector.
func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

// EmbedBatch embeds a batch of texts, one vector per input in input order.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *LocalEmbedder) embed(text string) []float32 {
	vector := make([]float32, e.dim)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		// The embedding of empty input: a fixed unit vector.
		vector[0] = 1
		return vector
	}

	for _, token := range tokens {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		vector[bucket] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vector[0] = 1
		return vector
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector
}

// Package embedding holds helpers shared by the embedder adapters in its
// subpackages.
package embedding

import (
	"context"
	"fmt"
	"math"

	"wikirag/internal/domain"
)

// Normalize scales v to unit length in place. Zero vectors are left alone.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// EmbedInBatches calls embed on consecutive slices of at most size texts and
// concatenates the results. A size below one sends everything at once.
func EmbedInBatches(ctx context.Context, texts []string, size int, embed func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	if size < 1 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors: %w", start, end, len(vecs), domain.ErrEmptyEmbedding)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

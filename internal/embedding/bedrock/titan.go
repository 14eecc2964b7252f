// Package bedrock provides an embedder for Amazon Titan text embedding
// models served through Bedrock.
package bedrock

import (
	"context"
	"fmt"

	awsbedrock "wikirag/internal/bedrock"
	"wikirag/internal/domain"
)

var _ domain.Embedder = (*TitanEmbedder)(nil)

// DefaultModelID is the Titan v2 text embedding model.
const DefaultModelID = "amazon.titan-embed-text-v2:0"

// TitanEmbedder calls InvokeModel once per text.
type TitanEmbedder struct {
	invoker awsbedrock.Invoker
	modelID string
}

type titanRequest struct {
	InputText string `json:"inputText"`
	Normalize bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewTitanEmbedder wraps a Bedrock runtime client.
func NewTitanEmbedder(inv awsbedrock.Invoker, modelID string) *TitanEmbedder {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &TitanEmbedder{invoker: inv, modelID: modelID}
}

// Name returns the Bedrock model id.
func (t *TitanEmbedder) Name() string { return t.modelID }

// Embed returns unit-length vectors, one per text.
func (t *TitanEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		var resp titanResponse
		if err := awsbedrock.InvokeJSON(ctx, t.invoker, t.modelID, titanRequest{InputText: text, Normalize: true}, &resp); err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		if len(resp.Embedding) == 0 {
			return nil, fmt.Errorf("embed text %d: %w", i, domain.ErrEmptyEmbedding)
		}
		out[i] = resp.Embedding
	}
	return out, nil
}

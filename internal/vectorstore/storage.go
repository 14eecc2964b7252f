// Package vectorstore defines the vector index contract and the manifest
// that records how an index directory was built.
package vectorstore

import (
	"context"
	"fmt"

	"wikirag/internal/domain"
)

// DefaultTopK is how many chunks a question retrieves unless configured.
const DefaultTopK = 4

// Storage persists vectors and supports similarity search.
type Storage interface {
	// Reset drops any previous contents and prepares for vectors of dimension.
	Reset(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	// Load opens an existing index and checks that it can be searched. A
	// missing or unreadable index is domain.ErrIndexNotFound.
	Load(ctx context.Context) error
	// Search returns up to topK chunks ordered by descending cosine similarity.
	Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)
	Close() error
}

// CheckBatch reports whether chunks and vectors line up and share dimension.
func CheckBatch(chunks []domain.Chunk, vectors [][]float32, dimension int) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%d chunks but %d vectors", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dimension)
		}
	}
	return nil
}

// Package memory is an in-process vector index using brute-force cosine
// similarity. The sqlite backend loads into it for searching.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"wikirag/internal/domain"
	"wikirag/internal/embedding"
	"wikirag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage keeps unit-length vectors so a dot product is the cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Reset(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := vectorstore.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	for i, v := range vectors {
		s.chunks = append(s.chunks, chunks[i])
		s.vectors = append(s.vectors, embedding.Normalize(append([]float32(nil), v...)))
	}
	return nil
}

// Load reports whether Reset has prepared the store.
func (s *Storage) Load(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension == 0 {
		return domain.ErrIndexNotFound
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, errors.New("query dimension mismatch")
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	query := embedding.Normalize(append([]float32(nil), vector...))

	results := make([]domain.SearchResult, len(s.vectors))
	for i := range s.vectors {
		results[i] = domain.SearchResult{Chunk: s.chunks[i], Score: dot(s.vectors[i], query)}
	}
	// ties keep insertion order so earlier chunks win
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Len reports how many chunks are held.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Storage) Close() error { return nil }

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

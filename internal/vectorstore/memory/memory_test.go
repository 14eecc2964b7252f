package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikirag/internal/domain"
)

func seeded(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Upsert(ctx,
		[]domain.Chunk{{ChunkID: "x"}, {ChunkID: "y"}, {ChunkID: "xy"}},
		[][]float32{{3, 0}, {0, 2}, {1, 1}},
	))
	return s
}

func TestStorage_SearchOrdersByCosine(t *testing.T) {
	s := seeded(t)

	res, err := s.Search(context.Background(), []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "x", res[0].Chunk.ChunkID)
	assert.Equal(t, "xy", res[1].Chunk.ChunkID)
	assert.InDelta(t, 0.995, res[0].Score, 0.001)
}

func TestStorage_SearchDefaultsTopK(t *testing.T) {
	res, err := seeded(t).Search(context.Background(), []float32{0, 1}, 0)
	require.NoError(t, err)
	assert.Len(t, res, 3)
}

func TestStorage_UpsertValidates(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Reset(ctx, 2))

	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, nil))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float32{{1, 2, 3}}))
	assert.Error(t, s.Reset(ctx, 0))
}

func TestStorage_ResetClears(t *testing.T) {
	s := seeded(t)
	require.NoError(t, s.Reset(context.Background(), 3))
	assert.Zero(t, s.Len())
}

func TestStorage_SearchQueryDimension(t *testing.T) {
	_, err := seeded(t).Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.Error(t, err)
}

func TestStorage_UpsertCopiesVectors(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Reset(ctx, 2))
	v := []float32{3, 4}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}}, [][]float32{v}))

	assert.Equal(t, []float32{3, 4}, v)
}

func TestStorage_Load(t *testing.T) {
	assert.ErrorIs(t, NewStorage().Load(context.Background()), domain.ErrIndexNotFound)
	assert.NoError(t, seeded(t).Load(context.Background()))
}

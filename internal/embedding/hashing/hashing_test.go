package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbedder_NameAndDimension(t *testing.T) {
	e := NewEmbedder(0)

	assert.Equal(t, DefaultDimension, e.Dimension())
	assert.Equal(t, "hashing-384", e.Name())
	assert.Equal(t, "hashing-64", NewEmbedder(64).Name())
}

func TestEmbedder_UnitLengthAndDeterministic(t *testing.T) {
	e := NewEmbedder(128)
	vecs, err := e.Embed(context.Background(), []string{"Alan Turing was a mathematician", "Alan Turing was a mathematician"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	assert.Len(t, vecs[0], 128)
	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, math.Sqrt(cosine(vecs[0], vecs[0])), 1e-5)
}

func TestEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewEmbedder(DefaultDimension)
	vecs, err := e.Embed(context.Background(), []string{
		"Who broke the Enigma cipher at Bletchley Park?",
		"Turing worked at Bletchley Park on breaking the Enigma cipher.",
		"The Ganges river flows through northern India into Bangladesh.",
	})
	require.NoError(t, err)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestEmbedder_StopwordsOnlyGivesZeroVector(t *testing.T) {
	vecs, err := NewEmbedder(32).Embed(context.Background(), []string{"the and of to"})
	require.NoError(t, err)

	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}

func TestEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbedder(32).Embed(ctx, []string{"text"})
	assert.ErrorIs(t, err, context.Canceled)
}

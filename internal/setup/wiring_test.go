package setup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikirag/internal/chunker"
	"wikirag/internal/config"
	"wikirag/internal/domain"
	"wikirag/internal/embedding/hashing"
	ollamaembed "wikirag/internal/embedding/ollama"
	"wikirag/internal/generation/extractive"
	ollamagen "wikirag/internal/generation/ollama"
	"wikirag/internal/vectorstore/qdrant"
	"wikirag/internal/vectorstore/sqlite"
)

func TestNewChunker(t *testing.T) {
	tests := []struct {
		typ  string
		want any
	}{
		{"window", &chunker.WindowChunker{}},
		{"", &chunker.WindowChunker{}},
		{"recursive", &chunker.RecursiveChunker{}},
		{"sentence", &chunker.SentenceChunker{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			ch, err := NewChunker(config.ChunkerConfig{Type: tt.typ, ChunkSize: 500, SentencesPerChunk: 5})
			require.NoError(t, err)
			assert.IsType(t, tt.want, ch)
		})
	}

	_, err := NewChunker(config.ChunkerConfig{Type: "semantic"})
	assert.Error(t, err)
}

func TestNewChunker_ZeroOverlap(t *testing.T) {
	overlap := 0
	ch, err := NewChunker(config.ChunkerConfig{Type: "window", ChunkSize: 5, ChunkOverlap: &overlap})
	require.NoError(t, err)

	chunks, err := ch.Chunk(domain.Document{ID: "d", Content: "abcdefghij"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcde", chunks[0].Text)
	assert.Equal(t, "fghij", chunks[1].Text)
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()

	emb, err := NewEmbedder(ctx, config.EmbedderConfig{Type: "hashing", Hashing: &config.HashingConfig{Dimension: 32}})
	require.NoError(t, err)
	assert.Equal(t, "hashing-32", emb.Name())

	emb, err = NewEmbedder(ctx, config.EmbedderConfig{Type: "ollama", Ollama: &config.OllamaConfig{Model: "all-minilm"}})
	require.NoError(t, err)
	assert.IsType(t, &ollamaembed.Embedder{}, emb)
	assert.Equal(t, "all-minilm", emb.Name())

	t.Setenv("WIKIRAG_TEST_ABSENT_KEY", "")
	_, err = NewEmbedder(ctx, config.EmbedderConfig{Type: "openai", OpenAI: &config.OpenAIConfig{APIKeyEnv: "WIKIRAG_TEST_ABSENT_KEY"}})
	assert.Error(t, err)

	_, err = NewEmbedder(ctx, config.EmbedderConfig{Type: "word2vec"})
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	gen, err := NewGenerator(ctx, config.GeneratorConfig{Type: "extractive"})
	require.NoError(t, err)
	assert.IsType(t, &extractive.Generator{}, gen)

	gen, err = NewGenerator(ctx, config.GeneratorConfig{Type: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &ollamagen.Generator{}, gen)

	_, err = NewGenerator(ctx, config.GeneratorConfig{Type: "t5"})
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	st, err := NewStore(ctx, config.VectorStoreConfig{Type: "sqlite"}, t.TempDir(), log)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Storage{}, st)

	st, err = NewStore(ctx, config.VectorStoreConfig{Type: "qdrant", Qdrant: &config.QdrantConfig{URL: "http://localhost:6333", Collection: "c"}}, "", log)
	require.NoError(t, err)
	assert.IsType(t, &qdrant.Storage{}, st)

	t.Setenv("WIKIRAG_TEST_NO_DSN", "")
	_, err = NewStore(ctx, config.VectorStoreConfig{Type: "postgres", Postgres: &config.PostgresConfig{DSNEnv: "WIKIRAG_TEST_NO_DSN"}}, "", log)
	assert.Error(t, err)

	_, err = NewStore(ctx, config.VectorStoreConfig{Type: "faiss"}, "", log)
	assert.Error(t, err)
}

func TestWire_OfflineStack(t *testing.T) {
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.Paths.DocsDir = filepath.Join(root, "docs")
	cfg.Paths.IndexDir = filepath.Join(root, "embeddings")
	cfg.Embedder.Type = "hashing"
	cfg.Embedder.Hashing = &config.HashingConfig{Dimension: hashing.DefaultDimension}
	cfg.Generator.Type = "extractive"

	svc, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)

	docs, err := svc.ListDocuments()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestOnce_CachesSuccessOnly(t *testing.T) {
	calls := 0
	p := once(func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("first try fails")
		}
		return calls, nil
	})

	_, err := p(context.Background())
	assert.Error(t, err)
	v, err := p(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, _ = p(context.Background())
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

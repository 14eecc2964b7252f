// Package setup turns an AppConfig into a ready RAGService.
package setup

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	awsbedrock "wikirag/internal/bedrock"
	"wikirag/internal/chunker"
	"wikirag/internal/config"
	"wikirag/internal/domain"
	bedrockembed "wikirag/internal/embedding/bedrock"
	"wikirag/internal/embedding/hashing"
	ollamaembed "wikirag/internal/embedding/ollama"
	openaiembed "wikirag/internal/embedding/openai"
	bedrockgen "wikirag/internal/generation/bedrock"
	"wikirag/internal/generation/extractive"
	ollamagen "wikirag/internal/generation/ollama"
	openaigen "wikirag/internal/generation/openai"
	"wikirag/internal/service"
	"wikirag/internal/vectorstore"
	"wikirag/internal/vectorstore/postgres"
	"wikirag/internal/vectorstore/qdrant"
	"wikirag/internal/vectorstore/sqlite"
	"wikirag/internal/wikipedia"
)

// Wire assembles the service. Embedder, store and generator are built on
// first use so that fetching works without a reachable model server.
func Wire(cfg *config.AppConfig, log zerolog.Logger) (*service.RAGService, error) {
	ch, err := NewChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}

	deps := service.Deps{
		Source:  NewArticleSource(cfg.Wikipedia, log),
		Chunker: ch,
		Embedder: once(func(ctx context.Context) (domain.Embedder, error) {
			return NewEmbedder(ctx, cfg.Embedder)
		}),
		Store: func(ctx context.Context) (vectorstore.Storage, error) {
			return NewStore(ctx, cfg.VectorStore, cfg.Paths.IndexDir, log)
		},
		Generator: once(func(ctx context.Context) (domain.Generator, error) {
			return NewGenerator(ctx, cfg.Generator)
		}),
	}
	opts := service.Options{
		DocsDir:     cfg.Paths.DocsDir,
		IndexDir:    cfg.Paths.IndexDir,
		Backend:     cfg.VectorStore.Type,
		ChunkerType: cfg.Chunker.Type,
		TopK:        cfg.VectorStore.TopK,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
	}
	switch cfg.Chunker.Type {
	case "window", "recursive":
		opts.ChunkSize = cfg.Chunker.ChunkSize
		opts.ChunkOverlap = cfg.Chunker.Overlap()
	case "sentence":
		opts.ChunkSize = cfg.Chunker.SentencesPerChunk
		opts.ChunkOverlap = cfg.Chunker.OverlapSentences
	}
	return service.NewRAGService(deps, opts, log), nil
}

// NewArticleSource builds the MediaWiki client.
func NewArticleSource(cfg config.WikipediaConfig, log zerolog.Logger) *wikipedia.Client {
	return wikipedia.NewClient(wikipedia.Config{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		Timeout:           seconds(cfg.TimeoutSecs),
		AutoSuggest:       cfg.AutoSuggestEnabled(),
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, log)
}

// NewChunker selects the chunking policy.
func NewChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	opts := []chunker.Option{chunker.WithChunkSize(cfg.ChunkSize)}
	if cfg.ChunkOverlap != nil {
		opts = append(opts, chunker.WithOverlap(*cfg.ChunkOverlap))
	}
	switch cfg.Type {
	case "window", "":
		return chunker.NewWindowChunker(opts...), nil
	case "recursive":
		return chunker.NewRecursiveChunker(opts...), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

// NewEmbedder selects the embedding backend.
func NewEmbedder(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "ollama", "":
		c := valueOr(cfg.Ollama)
		return ollamaembed.NewEmbedder(ollamaembed.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: seconds(c.TimeoutSecs),
		}), nil
	case "openai":
		c := valueOr(cfg.OpenAI)
		client, err := openaiembed.NewClient(openaiembed.Config{
			BaseURL:   c.BaseURL,
			APIKeyEnv: c.APIKeyEnv,
			Model:     c.Model,
			Timeout:   seconds(c.TimeoutSecs),
			BatchSize: c.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "bedrock":
		c := valueOr(cfg.Bedrock)
		rt, err := awsbedrock.NewRuntime(ctx, c.Region)
		if err != nil {
			return nil, fmt.Errorf("bedrock embedder init failed: %w", err)
		}
		return bedrockembed.NewTitanEmbedder(rt, c.ModelID), nil
	case "hashing":
		return hashing.NewEmbedder(valueOr(cfg.Hashing).Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// NewGenerator selects the answer generator.
func NewGenerator(ctx context.Context, cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "ollama", "":
		c := valueOr(cfg.Ollama)
		return ollamagen.NewGenerator(ollamagen.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: seconds(c.TimeoutSecs),
		}), nil
	case "openai":
		c := valueOr(cfg.OpenAI)
		g, err := openaigen.NewGenerator(openaigen.Config{
			BaseURL:   c.BaseURL,
			APIKeyEnv: c.APIKeyEnv,
			Model:     c.Model,
			Timeout:   seconds(c.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		return g, nil
	case "bedrock":
		c := valueOr(cfg.Bedrock)
		rt, err := awsbedrock.NewRuntime(ctx, c.Region)
		if err != nil {
			return nil, fmt.Errorf("bedrock generator init failed: %w", err)
		}
		return bedrockgen.NewClaudeGenerator(rt, c.ModelID), nil
	case "extractive":
		return extractive.NewGenerator(0), nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}

// NewStore opens the configured vector store. The sqlite store lives in indexDir.
func NewStore(ctx context.Context, cfg config.VectorStoreConfig, indexDir string, log zerolog.Logger) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "sqlite", "":
		return sqlite.New(indexDir, log), nil
	case "qdrant":
		c := valueOr(cfg.Qdrant)
		return qdrant.NewStorage(qdrant.Config{
			URL:        c.URL,
			APIKey:     c.APIKey,
			Collection: c.Collection,
			Timeout:    seconds(c.TimeoutSecs),
		}), nil
	case "postgres":
		c := valueOr(cfg.Postgres)
		dsn := os.Getenv(c.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("missing postgres connection string in env %s", c.DSNEnv)
		}
		st, err := postgres.New(ctx, dsn, c.Table, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// once caches the first successful build.
func once[T any](build service.Provider[T]) service.Provider[T] {
	var (
		mu    sync.Mutex
		value T
		built bool
	)
	return func(ctx context.Context) (T, error) {
		mu.Lock()
		defer mu.Unlock()
		if built {
			return value, nil
		}
		v, err := build(ctx)
		if err != nil {
			return v, err
		}
		value, built = v, true
		return value, nil
	}
}

func valueOr[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

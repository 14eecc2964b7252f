package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wikirag/internal/domain"
	"wikirag/internal/vectorstore"
)

// Session answers questions against a loaded index.
type Session struct {
	svc       *RAGService
	manifest  vectorstore.Manifest
	embedder  domain.Embedder
	store     vectorstore.Storage
	generator domain.Generator
}

// OpenSession loads the index built by BuildIndex. It fails with
// domain.ErrIndexNotFound when there is none and domain.ErrEmbeddingMismatch
// when it was built with a different embedding model.
func (s *RAGService) OpenSession(ctx context.Context) (*Session, error) {
	m, err := vectorstore.ReadManifest(s.opts.IndexDir)
	if err != nil {
		return nil, err
	}
	if s.opts.Backend != "" && m.Backend != s.opts.Backend {
		return nil, fmt.Errorf("index was built for the %s backend, configured %s: %w", m.Backend, s.opts.Backend, domain.ErrIndexNotFound)
	}
	emb, err := s.deps.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	if m.EmbeddingModel != emb.Name() {
		return nil, fmt.Errorf("index uses %s, embedder is %s: %w", m.EmbeddingModel, emb.Name(), domain.ErrEmbeddingMismatch)
	}
	gen, err := s.deps.Generator(ctx)
	if err != nil {
		return nil, err
	}
	store, err := s.deps.Store(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}

	s.log.Debug().Str("source", m.Source).Int("chunks", m.Chunks).Str("model", m.EmbeddingModel).Str("generator", gen.Name()).Msg("session opened")
	return &Session{svc: s, manifest: m, embedder: emb, store: store, generator: gen}, nil
}

// Manifest describes the loaded index.
func (s *Session) Manifest() vectorstore.Manifest { return s.manifest }

// Ask retrieves the passages closest to question and generates an answer from them.
func (s *Session) Ask(ctx context.Context, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	start := time.Now()
	vecs, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return domain.Answer{}, fmt.Errorf("embed question: %w", domain.ErrEmptyEmbedding)
	}
	if len(vecs[0]) != s.manifest.Dimension {
		return domain.Answer{}, fmt.Errorf("question vector has dimension %d, index has %d: %w", len(vecs[0]), s.manifest.Dimension, domain.ErrEmbeddingMismatch)
	}

	results, err := s.store.Search(ctx, vecs[0], s.svc.opts.TopK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("search index: %w", err)
	}
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Chunk.Text
	}

	text, err := s.generator.Generate(ctx, domain.GenerationRequest{
		Prompt:      BuildPrompt(question, passages),
		Question:    question,
		Passages:    passages,
		MaxTokens:   s.svc.opts.MaxTokens,
		Temperature: s.svc.opts.Temperature,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	s.svc.log.Debug().Str("question", question).Int("passages", len(passages)).Dur("latency", time.Since(start)).Msg("question answered")
	return domain.Answer{Question: question, Text: strings.TrimSpace(text), Sources: results}, nil
}

func (s *Session) Close() error {
	return s.store.Close()
}

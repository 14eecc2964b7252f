// Package service implements the three user-facing operations: fetching an
// article, indexing a saved article and answering questions against the index.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wikirag/internal/domain"
	"wikirag/internal/vectorstore"
)

// Provider builds a collaborator on first use, so commands that never need
// it (fetch never embeds) do not fail on its configuration.
type Provider[T any] func(ctx context.Context) (T, error)

// Deps are the collaborators a RAGService works with.
type Deps struct {
	Source    domain.ArticleSource
	Chunker   domain.Chunker
	Embedder  Provider[domain.Embedder]
	Store     Provider[vectorstore.Storage]
	Generator Provider[domain.Generator]
}

// Options carries settings that end up in reports and manifests.
type Options struct {
	DocsDir      string
	IndexDir     string
	Backend      string
	ChunkerType  string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	MaxTokens    int
	Temperature  float64
}

// RAGService wires the fetch, index and ask pipelines.
type RAGService struct {
	deps Deps
	opts Options
	log  zerolog.Logger
	now  func() time.Time
}

func NewRAGService(deps Deps, opts Options, log zerolog.Logger) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = vectorstore.DefaultTopK
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &RAGService{deps: deps, opts: opts, log: log, now: time.Now}
}

// FetchReport describes a saved article.
type FetchReport struct {
	Topic string
	Title string
	URL   string
	Path  string
	Bytes int
}

// FetchArticle looks topic up and writes the article body to DocsDir/<slug>.txt.
// Nothing is written when the lookup fails.
func (s *RAGService) FetchArticle(ctx context.Context, topic string) (FetchReport, error) {
	slug, err := Slugify(topic)
	if err != nil {
		return FetchReport{}, err
	}
	article, err := s.deps.Source.Fetch(ctx, topic)
	if err != nil {
		return FetchReport{}, err
	}

	if err := os.MkdirAll(s.opts.DocsDir, 0o755); err != nil {
		return FetchReport{}, fmt.Errorf("create docs dir: %w", err)
	}
	path := filepath.Join(s.opts.DocsDir, slug+".txt")
	if err := os.WriteFile(path, []byte(article.Content), 0o644); err != nil {
		return FetchReport{}, fmt.Errorf("write article: %w", err)
	}

	s.log.Info().Str("topic", topic).Str("title", article.Title).Str("file", path).Int("bytes", len(article.Content)).Msg("article saved")
	return FetchReport{
		Topic: topic,
		Title: article.Title,
		URL:   article.URL,
		Path:  path,
		Bytes: len(article.Content),
	}, nil
}

// DocumentInfo describes a saved article file.
type DocumentInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// ListDocuments returns the .txt files in DocsDir sorted by name. A missing
// directory is an empty list.
func (s *RAGService) ListDocuments() ([]DocumentInfo, error) {
	entries, err := os.ReadDir(s.opts.DocsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read docs dir: %w", err)
	}
	var docs []DocumentInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		docs = append(docs, DocumentInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// IndexReport summarizes a finished BuildIndex run.
type IndexReport struct {
	Source    string
	Chunks    int
	Dimension int
	Model     string
	Dir       string
}

// BuildIndex chunks and embeds DocsDir/<name> and replaces the index with it.
// All embedding happens before the old index is touched.
func (s *RAGService) BuildIndex(ctx context.Context, name string) (IndexReport, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return IndexReport{}, fmt.Errorf("file name %q: %w", name, domain.ErrInvalidInput)
	}
	path := filepath.Join(s.opts.DocsDir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return IndexReport{}, fmt.Errorf("%s: %w", path, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return IndexReport{}, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return IndexReport{}, fmt.Errorf("document is empty: %w", domain.ErrInvalidInput)
	}

	chunks, err := s.deps.Chunker.Chunk(domain.Document{ID: name, Path: path, Content: string(data)})
	if err != nil {
		return IndexReport{}, fmt.Errorf("chunk %s: %w", name, err)
	}
	if len(chunks) == 0 {
		return IndexReport{}, fmt.Errorf("document is empty: %w", domain.ErrInvalidInput)
	}

	emb, err := s.deps.Embedder(ctx)
	if err != nil {
		return IndexReport{}, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	start := time.Now()
	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		return IndexReport{}, fmt.Errorf("embed chunks: %w", err)
	}
	dim, err := checkVectors(vectors, len(chunks))
	if err != nil {
		return IndexReport{}, err
	}
	s.log.Debug().Str("file", name).Int("chunks", len(chunks)).Str("model", emb.Name()).Dur("latency", time.Since(start)).Msg("chunks embedded")

	// a half-written index must not look valid
	if err := os.Remove(filepath.Join(s.opts.IndexDir, vectorstore.ManifestFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return IndexReport{}, fmt.Errorf("remove old manifest: %w", err)
	}
	store, err := s.deps.Store(ctx)
	if err != nil {
		return IndexReport{}, err
	}
	defer store.Close()
	if err := store.Reset(ctx, dim); err != nil {
		return IndexReport{}, fmt.Errorf("reset index: %w", err)
	}
	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		return IndexReport{}, fmt.Errorf("store vectors: %w", err)
	}

	m := vectorstore.Manifest{
		Backend:        s.opts.Backend,
		EmbeddingModel: emb.Name(),
		Dimension:      dim,
		Source:         name,
		ChunkerType:    s.opts.ChunkerType,
		ChunkSize:      s.opts.ChunkSize,
		ChunkOverlap:   s.opts.ChunkOverlap,
		Chunks:         len(chunks),
		CreatedAt:      s.now().UTC(),
	}
	if err := vectorstore.WriteManifest(s.opts.IndexDir, m); err != nil {
		return IndexReport{}, err
	}

	s.log.Info().Str("file", name).Int("chunks", len(chunks)).Int("dimension", dim).Str("backend", s.opts.Backend).Msg("index built")
	return IndexReport{Source: name, Chunks: len(chunks), Dimension: dim, Model: emb.Name(), Dir: s.opts.IndexDir}, nil
}

func checkVectors(vectors [][]float32, want int) (int, error) {
	if len(vectors) != want {
		return 0, fmt.Errorf("got %d vectors for %d chunks: %w", len(vectors), want, domain.ErrEmptyEmbedding)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, domain.ErrEmptyEmbedding
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return dim, nil
}

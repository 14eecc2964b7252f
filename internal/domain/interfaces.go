package domain

import "context"

// Article is an encyclopedia page as returned by an ArticleSource.
type Article struct {
	Topic   string
	Title   string
	PageID  int
	URL     string
	Content string
}

// Document represents a single saved article file loaded for indexing.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a fixed-size piece of a document used as the unit of retrieval.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Answer is the outcome of one question against the index.
type Answer struct {
	Question string
	Text     string
	Sources  []SearchResult
}

// GenerationRequest carries everything a generator may need. Model-backed
// generators use Prompt; extractive ones work from Question and Passages.
type GenerationRequest struct {
	Prompt      string
	Question    string
	Passages    []string
	MaxTokens   int
	Temperature float64
}

// ArticleSource looks up an article by free-text topic.
type ArticleSource interface {
	Fetch(ctx context.Context, topic string) (Article, error)
}

// Embedder converts a batch of texts into vectors. Name identifies the
// model so an index can be matched with the embedder that built it.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Generator produces a short answer text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

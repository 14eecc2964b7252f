// Package chunker splits saved articles into overlapping chunks.
package chunker

import (
	"strconv"

	"wikirag/internal/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of characters shared by consecutive chunks.
const DefaultChunkOverlap = 50

// WindowChunker slides a fixed-size window over the text. Sizes are counted
// in runes so multi-byte characters are never cut in half.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// Option configures a character-based chunker.
type Option func(*options)

type options struct {
	chunkSize int
	overlap   int
}

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(o *options) {
		if overlap >= 0 {
			o.overlap = overlap
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{chunkSize: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(&o)
	}
	// Ensure overlap doesn't exceed chunk size
	if o.overlap >= o.chunkSize {
		o.overlap = o.chunkSize / 4
	}
	return o
}

// NewWindowChunker creates a fixed-window chunker with the given options.
func NewWindowChunker(opts ...Option) *WindowChunker {
	o := buildOptions(opts)
	return &WindowChunker{chunkSize: o.chunkSize, overlap: o.overlap}
}

// Chunk splits the document into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one. The last window ends at
// the end of the text.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	runes := []rune(document.Content)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	step := c.chunkSize - c.overlap
	chunks := make([]domain.Chunk, 0, n/step+1)
	for start, idx := 0, 0; ; start, idx = start+step, idx+1 {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, newChunk(document.ID, idx, string(runes[start:end])))
		if end == n {
			break
		}
	}
	return chunks, nil
}

func newChunk(documentID string, idx int, text string) domain.Chunk {
	return domain.Chunk{
		DocumentID: documentID,
		ChunkID:    documentID + ":" + strconv.Itoa(idx),
		Text:       text,
		Index:      idx,
	}
}

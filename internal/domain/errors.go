package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput indicates malformed or empty user input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrArticleNotFound indicates the encyclopedia has no page for a topic.
	ErrArticleNotFound = errors.New("article not found")

	// ErrDocumentNotFound indicates a saved article file does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrIndexNotFound indicates no usable vector index exists on disk.
	ErrIndexNotFound = errors.New("vector index not found")

	// ErrEmbeddingMismatch indicates the index was built with another embedding model.
	ErrEmbeddingMismatch = errors.New("embedding model mismatch")

	// ErrEmptyEmbedding indicates an embedder returned no vector for an input.
	ErrEmptyEmbedding = errors.New("empty embedding")
)

// DisambiguationError is returned when a topic matches a disambiguation page.
type DisambiguationError struct {
	Topic   string
	Title   string
	Options []string
}

func (e *DisambiguationError) Error() string {
	title := e.Title
	if title == "" {
		title = e.Topic
	}
	if len(e.Options) == 0 {
		return fmt.Sprintf("%q may refer to several pages", title)
	}
	return fmt.Sprintf("%q may refer to: %s", title, strings.Join(e.Options, ", "))
}

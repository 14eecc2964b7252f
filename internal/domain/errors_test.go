package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisambiguationError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *DisambiguationError
		want string
	}{
		{
			name: "no options",
			err:  &DisambiguationError{Topic: "mercury"},
			want: `"mercury" may refer to several pages`,
		},
		{
			name: "title preferred over topic",
			err:  &DisambiguationError{Topic: "mercury", Title: "Mercury", Options: []string{"Mercury (planet)", "Mercury (element)"}},
			want: `"Mercury" may refer to: Mercury (planet), Mercury (element)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDisambiguationError_As(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", &DisambiguationError{Topic: "java"})

	var dis *DisambiguationError
	require.True(t, errors.As(wrapped, &dis))
	assert.Equal(t, "java", dis.Topic)
}

func TestSentinelErrors_Distinct(t *testing.T) {
	all := []error{
		ErrInvalidInput,
		ErrArticleNotFound,
		ErrDocumentNotFound,
		ErrIndexNotFound,
		ErrEmbeddingMismatch,
		ErrEmptyEmbedding,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

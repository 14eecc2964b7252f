package service

import (
	"fmt"
	"strings"
	"unicode"

	"wikirag/internal/domain"
)

// Slugify turns a topic into a file-name stem: lower case, no whitespace,
// and none of the characters that are unsafe in a file name.
func Slugify(topic string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		switch {
		case unicode.IsSpace(r), unicode.IsControl(r):
		case strings.ContainsRune(`/\:*?"<>|`, r):
		default:
			b.WriteRune(r)
		}
	}
	slug := strings.Trim(b.String(), ".")
	if slug == "" {
		return "", fmt.Errorf("topic %q gives an empty file name: %w", topic, domain.ErrInvalidInput)
	}
	return slug, nil
}

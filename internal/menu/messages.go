package menu

import (
	"errors"
	"strings"

	"wikirag/internal/domain"
)

// MaxOptionsShown caps the disambiguation options listed to the user.
const MaxOptionsShown = 10

// Describe turns an operation error into the message shown on the console.
func Describe(err error) string {
	var de *domain.DisambiguationError
	switch {
	case errors.As(err, &de):
		var b strings.Builder
		b.WriteString("Multiple pages found. Please refine your topic.")
		for i, opt := range de.Options {
			if i == MaxOptionsShown {
				b.WriteString("\n  ...")
				break
			}
			b.WriteString("\n  - ")
			b.WriteString(opt)
		}
		return b.String()
	case errors.Is(err, domain.ErrDocumentNotFound):
		return "File does not exist."
	case errors.Is(err, domain.ErrIndexNotFound):
		return "Could not load vector store. Did you run Option 2 first?"
	default:
		return "Error: " + err.Error()
	}
}

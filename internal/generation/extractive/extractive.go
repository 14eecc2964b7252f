// Package extractive answers without a language model by picking the
// passage sentences that best overlap the question.
package extractive

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"wikirag/internal/domain"
)

var _ domain.Generator = (*Generator)(nil)

// DefaultMaxSentences caps the answer length.
const DefaultMaxSentences = 3

// NoAnswer is returned when no passage sentence shares a term with the question.
const NoAnswer = "I don't know."

// Generator ranks sentences by question-term overlap weighted by how often
// each term appears across the passages.
type Generator struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
	maxSentences    int
}

func NewGenerator(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Generator{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		sentencePattern: regexp.MustCompile(`[^.!?\n]+[.!?]*`),
		stopwords:       defaultStopwords(),
		maxSentences:    maxSentences,
	}
}

func (g *Generator) Name() string { return "extractive" }

// Generate ignores Prompt and works from Question and Passages.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query := map[string]struct{}{}
	for _, tok := range g.terms(req.Question) {
		query[tok] = struct{}{}
	}

	var sentences []string
	for _, p := range req.Passages {
		for _, s := range g.sentencePattern.FindAllString(p, -1) {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	if len(query) == 0 || len(sentences) == 0 {
		return NoAnswer, nil
	}

	// term frequency across passages; rarer matching terms weigh more
	freq := map[string]float64{}
	for _, s := range sentences {
		for _, tok := range g.terms(s) {
			freq[tok]++
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	seen := map[string]struct{}{}
	for i, s := range sentences {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		toks := g.terms(s)
		score := 0.0
		for _, tok := range toks {
			if _, ok := query[tok]; ok {
				score += 1 / math.Sqrt(freq[tok])
			}
		}
		if score == 0 {
			continue
		}
		ranked = append(ranked, scored{i, score / math.Sqrt(float64(len(toks)))})
	}
	if len(ranked) == 0 {
		return NoAnswer, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	n := min(g.maxSentences, len(ranked))
	// keep passage order among the selected sentences
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = ranked[i].idx
	}
	sort.Ints(selected)

	out := make([]string, n)
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return truncateWords(strings.Join(out, " "), req.MaxTokens), nil
}

func (g *Generator) terms(text string) []string {
	toks := g.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := toks[:0]
	for _, t := range toks {
		if _, stop := g.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

// truncateWords treats whitespace-separated words as tokens.
func truncateWords(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= maxTokens {
		return s
	}
	return strings.Join(words[:maxTokens], " ")
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "whose", "when", "where", "why", "how", "do", "does", "did", "he", "she", "they", "his", "her", "their",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Package bedrock provides a generator for Anthropic Claude models served
// through Amazon Bedrock.
package bedrock

import (
	"context"
	"errors"
	"strings"

	awsbedrock "wikirag/internal/bedrock"
	"wikirag/internal/domain"
)

var _ domain.Generator = (*ClaudeGenerator)(nil)

// DefaultModelID is used when no model id is configured.
const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

const anthropicVersion = "bedrock-2023-05-31"

// Claude API request format (what Bedrock expects)
type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Claude API response format (what Bedrock returns)
type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// ClaudeGenerator invokes a Claude model with the prompt as one user turn.
type ClaudeGenerator struct {
	invoker awsbedrock.Invoker
	modelID string
}

func NewClaudeGenerator(inv awsbedrock.Invoker, modelID string) *ClaudeGenerator {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &ClaudeGenerator{invoker: inv, modelID: modelID}
}

func (c *ClaudeGenerator) Name() string { return c.modelID }

func (c *ClaudeGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	payload := claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		Messages:         []claudeMessage{{Role: "user", Content: req.Prompt}},
	}

	var resp claudeResponse
	if err := awsbedrock.InvokeJSON(ctx, c.invoker, c.modelID, payload, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("claude returned no text")
	}
	return strings.TrimSpace(b.String()), nil
}

// Package provider constructs the model and embedding clients used by the agent.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = anthropic.ModelClaude3_7SonnetLatest
const APIVersion = "2023-06-01"

// DefaultMaxTokens caps a single completion when the caller leaves it unset.
const DefaultMaxTokens = 1024

// NewAnthropicClient returns a client for apiKey. An empty apiKey falls back to
// ANTHROPIC_API_KEY; an empty baseURL keeps the SDK default.
func NewAnthropicClient(apiKey, baseURL string, opts ...option.RequestOption) *anthropic.Client {
	var all []option.RequestOption
	if apiKey != "" {
		all = append(all, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	c := anthropic.NewClient(append(all, opts...)...)
	return &c
}

// ResolveModel maps a configured model name to an anthropic.Model.
func ResolveModel(name string) anthropic.Model {
	if strings.TrimSpace(name) == "" {
		return DefaultModel
	}
	return anthropic.Model(name)
}

// Completer answers single-prompt completions. Document tools use it to
// synthesize answers and summaries from retrieved text.
type Completer struct {
	Client    *anthropic.Client
	Model     anthropic.Model
	MaxTokens int64
}

var ErrNoText = errors.New("provider: response contained no text")

// Generate sends prompt as a lone user message and returns the concatenated text blocks.
func (c *Completer) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	msg, err := c.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("provider: completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrNoText
	}
	return sb.String(), nil
}

// Package llm wraps the OpenAI chat completion API behind the small
// generation and formatting contracts the chat pipeline consumes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/raidstats/raid-chat/internal/config"
)

// Client issues chat completions against an OpenAI-compatible endpoint.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a Client from configuration.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// complete sends a single-user-message completion and returns the
// response text and total token usage.
func (c *Client) complete(ctx context.Context, prompt string) (string, int, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		},
	)
	if err != nil {
		return "", 0, fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", resp.Usage.TotalTokens, errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

// Generate produces raw query text for a generation prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, int, error) {
	return c.complete(ctx, prompt)
}

// Format renders a raw query result into a user-facing answer.
func (c *Client) Format(ctx context.Context, question, query, result string) (string, int, error) {
	return c.complete(ctx, AnswerPrompt(question, query, result))
}

// SuggestQuestions asks the model for follow-up question suggestions
// and parses them one per line, stripping numbering and bullets.
func (c *Client) SuggestQuestions(ctx context.Context, prompt string, limit int) ([]string, error) {
	text, _, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "1234567890.-• ")
		if len(line) > 10 {
			out = append(out, line)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

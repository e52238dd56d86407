package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

const anthropicMaxTokens = 1024

// NewAnthropicCaller creates a CallFunc backed by the Anthropic Messages API.
func NewAnthropicCaller(apiKey, model, baseURL string) CallFunc {
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)

	return func(ctx context.Context, prompt string) (string, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: anthropicMaxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt + "\n\nReturn ONLY valid JSON, no markdown or extra text.")),
			},
		})
		if err != nil {
			return "", fmt.Errorf("anthropic request: %w", err)
		}

		for _, block := range message.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", errors.New("anthropic returned no text content")
	}
}

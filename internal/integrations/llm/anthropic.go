package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"sentilens/internal/domain"
)

// AnthropicClient classifies through the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

// NewAnthropicClient builds a client; extra options are appended after the defaults.
// The SDK's own retries are disabled so that retry policy stays with the caller.
func NewAnthropicClient(apiKey, model string, httpClient *http.Client, logger *slog.Logger, extra ...option.RequestOption) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

func (c *AnthropicClient) Classify(ctx context.Context, text string) (domain.Labels, error) {
	return classifyOne(ctx, c, text)
}

func (c *AnthropicClient) ClassifyBatch(ctx context.Context, texts []string) ([]domain.Labels, error) {
	return classifyBatch(ctx, c, texts)
}

func (c *AnthropicClient) complete(ctx context.Context, system, user string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		c.logger.Warn("llm anthropic error", "model", c.model, "err", err)
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			c.logger.Debug("llm anthropic response",
				"model", c.model,
				"size", len(block.Text),
				"tokens_in", message.Usage.InputTokens,
				"tokens_out", message.Usage.OutputTokens,
			)
			return block.Text, nil
		}
	}
	return "", errors.New("no text content in anthropic response")
}

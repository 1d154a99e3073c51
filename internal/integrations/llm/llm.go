// Package llm talks to the text-classification providers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"sentilens/internal/domain"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4.1-nano"
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
)

const systemPrompt = `You are a sentiment analyzer. For each text input in the array, respond with JSON in the format: {"result": [{"sentiment": "positive/negative/neutral", "emotion": "joy/anger/sadness/fear/surprise/disgust/neutral"}]}`

// Classifier labels free text with a sentiment and an emotion.
//
// ClassifyBatch returns one entry per submitted text, in submission order; fewer
// entries than texts is allowed. A *domain.MalformedResponseError means the provider
// answered with content of the wrong shape; any other error is a failed exchange.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Labels, error)
	ClassifyBatch(ctx context.Context, texts []string) ([]domain.Labels, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
}

// New builds the Classifier for opts.Provider ("anthropic" or "openai").
func New(opts Options, httpClient *http.Client, logger *slog.Logger) (Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "openai":
		return &OpenAIClient{
			APIKey:     opts.OpenAIAPIKey,
			Model:      opts.Model,
			BaseURL:    opts.OpenAIBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		}, nil
	case "anthropic", "":
		return NewAnthropicClient(opts.AnthropicAPIKey, opts.Model, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

// completer sends one system+user exchange and returns the raw text content.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

func classifyBatch(ctx context.Context, c completer, texts []string) ([]domain.Labels, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	user, err := batchPrompt(texts)
	if err != nil {
		return nil, err
	}
	content, err := c.complete(ctx, systemPrompt, user)
	if err != nil {
		return nil, err
	}
	return ParseBatchResponse(content)
}

func classifyOne(ctx context.Context, c completer, text string) (domain.Labels, error) {
	user, err := batchPrompt([]string{text})
	if err != nil {
		return domain.Labels{}, err
	}
	content, err := c.complete(ctx, systemPrompt, user)
	if err != nil {
		return domain.Labels{}, err
	}
	return ParseSingleResponse(content)
}

func batchPrompt(texts []string) (string, error) {
	encoded, err := json.Marshal(texts)
	if err != nil {
		return "", fmt.Errorf("encoding texts: %w", err)
	}
	return "Analyze these texts: " + string(encoded), nil
}

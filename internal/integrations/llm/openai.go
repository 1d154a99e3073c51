package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"sentilens/internal/domain"
)

// OpenAIClient classifies through an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Classify(ctx context.Context, text string) (domain.Labels, error) {
	return classifyOne(ctx, c, text)
}

func (c *OpenAIClient) ClassifyBatch(ctx context.Context, texts []string) ([]domain.Labels, error) {
	return classifyBatch(ctx, c, texts)
}

func (c *OpenAIClient) endpoint() string {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	return strings.TrimRight(base, "/") + "/chat/completions"
}

func (c *OpenAIClient) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	model := c.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger().Warn("llm openai error", "model", model, "err", err)
		return "", fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	decodeErr := json.Unmarshal(respBody, &openAIResp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && openAIResp.Error != nil {
			msg = openAIResp.Error.Message
		}
		c.logger().Warn("llm openai bad status", "model", model, "status", resp.StatusCode)
		return "", fmt.Errorf("openai API status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("parsing openai response: %w", decodeErr)
	}
	if openAIResp.Error != nil {
		return "", fmt.Errorf("openai API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	attrs := []any{"model", model, "size", len(openAIResp.Choices[0].Message.Content)}
	if openAIResp.Usage != nil {
		attrs = append(attrs, "tokens_in", openAIResp.Usage.PromptTokens, "tokens_out", openAIResp.Usage.CompletionTokens)
	}
	c.logger().Debug("llm openai response", attrs...)
	return openAIResp.Choices[0].Message.Content, nil
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentilens/internal/domain"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func chatCompletion(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
	})
	require.NoError(t, err)
	return string(body)
}

func TestOpenAIClassifyBatch(t *testing.T) {
	var captured openAIRequest
	client := &OpenAIClient{
		APIKey:  "sk-test",
		BaseURL: "https://llm.test/v1/",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				assert.Equal(t, "https://llm.test/v1/chat/completions", req.URL.String())
				assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
				body, _ := io.ReadAll(req.Body)
				require.NoError(t, json.Unmarshal(body, &captured))
				return jsonResponse(http.StatusOK, chatCompletion(t,
					`{"result":[{"sentiment":"positive","emotion":"joy"},{"sentiment":"negative","emotion":"anger"}]}`))
			}),
		},
	}

	got, err := client.ClassifyBatch(context.Background(), []string{"love it", "hate it"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Labels{
		{Sentiment: "positive", Emotion: "joy"},
		{Sentiment: "negative", Emotion: "anger"},
	}, got)

	assert.Equal(t, defaultOpenAIModel, captured.Model)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, `Analyze these texts: ["love it","hate it"]`, captured.Messages[1].Content)
}

func TestOpenAIBadStatusIsExchangeFailure(t *testing.T) {
	client := &OpenAIClient{
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
			}),
		},
	}
	_, err := client.ClassifyBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
	var malformed *domain.MalformedResponseError
	assert.False(t, errors.As(err, &malformed))
}

func TestOpenAIUndecodableEnvelopeIsExchangeFailure(t *testing.T) {
	client := &OpenAIClient{
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return jsonResponse(http.StatusOK, `<html>gateway</html>`)
			}),
		},
	}
	_, err := client.ClassifyBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	var malformed *domain.MalformedResponseError
	assert.False(t, errors.As(err, &malformed))
}

func TestOpenAIMalformedContent(t *testing.T) {
	client := &OpenAIClient{
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return jsonResponse(http.StatusOK, chatCompletion(t, "I am not JSON"))
			}),
		},
	}
	_, err := client.ClassifyBatch(context.Background(), []string{"x"})
	var malformed *domain.MalformedResponseError
	assert.True(t, errors.As(err, &malformed), "got %v", err)
}

func TestOpenAIClassifySingle(t *testing.T) {
	client := &OpenAIClient{
		Model: "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				body, _ := io.ReadAll(req.Body)
				assert.Contains(t, string(body), `"model":"gpt-test"`)
				return jsonResponse(http.StatusOK, chatCompletion(t, `{"sentiment":"neutral","emotion":"neutral"}`))
			}),
		},
	}
	got, err := client.Classify(context.Background(), "it arrived")
	require.NoError(t, err)
	assert.Equal(t, domain.Labels{Sentiment: "neutral", Emotion: "neutral"}, got)
}

func TestNewProviderSwitch(t *testing.T) {
	c, err := New(Options{Provider: "OpenAI", OpenAIBaseURL: "http://local"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = New(Options{}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = New(Options{Provider: "cohere"}, nil, nil)
	assert.Error(t, err)
}

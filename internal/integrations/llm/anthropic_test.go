package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentilens/internal/domain"
)

func anthropicServer(t *testing.T, status int, text string) (*httptest.Server, *[]byte) {
	t.Helper()
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-test",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]string{{"type": "text", "text": text}},
			"usage":         map[string]int{"input_tokens": 12, "output_tokens": 7},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestAnthropicClassifyBatch(t *testing.T) {
	srv, captured := anthropicServer(t, http.StatusOK, `{"result":[{"sentiment":"negative","emotion":"sadness"}]}`)
	client := NewAnthropicClient("key", "claude-test", srv.Client(), nil, option.WithBaseURL(srv.URL+"/"))

	got, err := client.ClassifyBatch(context.Background(), []string{"it broke"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Labels{{Sentiment: "negative", Emotion: "sadness"}}, got)
	assert.Contains(t, string(*captured), `Analyze these texts: [\"it broke\"]`)
	assert.Contains(t, string(*captured), `"model":"claude-test"`)
}

func TestAnthropicErrorStatus(t *testing.T) {
	srv, _ := anthropicServer(t, http.StatusServiceUnavailable, "")
	client := NewAnthropicClient("key", "", srv.Client(), nil, option.WithBaseURL(srv.URL+"/"))

	_, err := client.ClassifyBatch(context.Background(), []string{"x"})
	assert.Error(t, err)
}

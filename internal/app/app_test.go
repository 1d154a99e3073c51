package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing-config.yaml"))
	t.Setenv("DOTENV_PATH", filepath.Join(dir, "missing.env"))
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_MODEL", "LLM_STRATEGY", "LLM_BATCH_SIZE", "ANTHROPIC_API_KEY",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "TEXT_COLUMN", "DATE_COLUMN", "STOPWORDS_PATH",
		"TIMEZONE", "NGRAM_THRESHOLD", "LOG_LEVEL", "LOG_FORMAT", "LLM_RETRY_MAX_ATTEMPTS",
		"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "SLACK_CHANNEL_ID", "WATCH_FILE",
	} {
		t.Setenv(key, "")
	}
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })
	return dir
}

// fakeOpenAI answers every chat completion with positive/joy for each text in the prompt.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		user := req.Messages[len(req.Messages)-1].Content
		var texts []string
		require.NoError(t, json.Unmarshal([]byte(user[strings.Index(user, "["):]), &texts))

		result := make([]map[string]string, len(texts))
		for i := range texts {
			result[i] = map[string]string{"sentiment": "positive", "emotion": "joy"}
		}
		content, _ := json.Marshal(map[string]any{"result": result})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": string(content)}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunAnalyzeEndToEnd(t *testing.T) {
	dir := isolateEnv(t)
	srv := fakeOpenAI(t)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "test")
	t.Setenv("OPENAI_BASE_URL", srv.URL)

	input := filepath.Join(dir, "feedback.csv")
	csv := "text,timestamp\ngreat product great service,2024-01-01\ngreat product indeed,2024-01-02\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o644))
	export := filepath.Join(dir, "out", "classified.csv")

	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), []string{"analyze", "-file", input, "-export", export}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "### Sentiment analysis: feedback.csv")
	assert.Contains(t, out, "great product")
	assert.Contains(t, stderr.String(), "analysis complete")

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "text,timestamp,Sentiment,Emotion", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",positive,joy"), lines[1])
}

func TestRunRequiresCommand(t *testing.T) {
	err := Run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage:")
}

func TestRunUnknownCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "test")

	err := Run(context.Background(), []string{"serve"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "serve"`)
}

func TestRunAnalyzeRequiresFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "test")

	err := Run(context.Background(), []string{"analyze"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-file is required")
}

func TestRunBotRequiresSlackTokens(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "test")

	err := Run(context.Background(), []string{"bot"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack_bot_token")
}

func TestRunWatchRequiresFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "test")

	err := Run(context.Background(), []string{"watch"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch_file")
}

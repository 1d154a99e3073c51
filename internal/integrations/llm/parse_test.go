package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentilens/internal/domain"
)

func TestParseBatchResponse(t *testing.T) {
	content := "```json\n{\"result\": [{\"sentiment\": \"positive\", \"emotion\": \"joy\"}, {\"sentiment\": \"negative\"}]}\n```"
	got, err := ParseBatchResponse(content)
	require.NoError(t, err)
	assert.Equal(t, []domain.Labels{
		{Sentiment: "positive", Emotion: "joy"},
		{Sentiment: "negative"},
	}, got)
}

func TestParseBatchResponseMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":        "sorry, I cannot help",
		"missing result":  `{"items": []}`,
		"result not list": `{"result": "positive"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBatchResponse(content)
			var malformed *domain.MalformedResponseError
			assert.True(t, errors.As(err, &malformed), "got %v", err)
		})
	}
}

func TestParseSingleResponse(t *testing.T) {
	got, err := ParseSingleResponse(`Here you go: {"sentiment":"neutral","emotion":"surprise"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.Labels{Sentiment: "neutral", Emotion: "surprise"}, got)

	got, err = ParseSingleResponse(`{"result":[{"sentiment":"negative","emotion":"anger"}]}`)
	require.NoError(t, err)
	assert.Equal(t, domain.Labels{Sentiment: "negative", Emotion: "anger"}, got)

	_, err = ParseSingleResponse(`{"result":[]}`)
	var malformed *domain.MalformedResponseError
	assert.True(t, errors.As(err, &malformed))

	_, err = ParseSingleResponse(`{"other":1}`)
	assert.True(t, errors.As(err, &malformed))
}

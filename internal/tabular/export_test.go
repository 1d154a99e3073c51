package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentilens/internal/domain"
)

func TestExportQuotesDelimiter(t *testing.T) {
	items := []domain.ClassifiedItem{
		{ID: 0, Record: domain.Record{"text": "fast, friendly", "date": "2024-01-01"}, Sentiment: "positive", Emotion: "joy"},
		{ID: 1, Record: domain.Record{"text": "meh", "date": "2024-01-02"}, Sentiment: "neutral", Emotion: "neutral"},
	}

	out, err := ExportBytes([]string{"text", "date"}, items)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "text,date,Sentiment,Emotion", lines[0])
	assert.Equal(t, `"fast, friendly",2024-01-01,positive,joy`, lines[1])
	assert.Equal(t, "meh,2024-01-02,neutral,neutral", lines[2])
}

func TestExportDoublesQuotes(t *testing.T) {
	items := []domain.ClassifiedItem{
		{Record: domain.Record{"text": `she said "wow", then left`}, Sentiment: "Error", Emotion: "Error"},
	}
	out, err := ExportBytes([]string{"text"}, items)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"she said ""wow"", then left",Error,Error`)
}

func TestExportRoundTripsThroughParse(t *testing.T) {
	items := []domain.ClassifiedItem{
		{Record: domain.Record{"text": "a, b", "n": "1"}, Sentiment: "positive", Emotion: "joy"},
	}
	out, err := ExportBytes([]string{"text", "n"}, items)
	require.NoError(t, err)

	ds, err := Parse(string(out))
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "a, b", ds.Records[0]["text"])
	assert.Equal(t, "positive", ds.Records[0]["Sentiment"])
}

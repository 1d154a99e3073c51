package tabular

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentilens/internal/domain"
)

func TestParseRecordCountAndKeys(t *testing.T) {
	raw := "text,date,category\n" +
		"great support,2024-01-02,support\n" +
		"\n" +
		"   \n" +
		"slow reply,2024-01-03,billing\r\n" +
		"ok,2024-01-04,feedback\n"

	ds, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, []string{"text", "date", "category"}, ds.Columns)
	for _, rec := range ds.Records {
		assert.Len(t, rec, 3)
		for _, col := range ds.Columns {
			_, ok := rec[col]
			assert.True(t, ok, "missing column %s", col)
		}
	}
	assert.Equal(t, "billing", ds.Records[1]["category"])
}

func TestParseQuotedDelimiter(t *testing.T) {
	ds, err := Parse("a,b\n1,\"x,y\",2")
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "1", ds.Records[0]["a"])
	assert.Equal(t, "x,y", ds.Records[0]["b"])
}

func TestParseMissingTrailingFields(t *testing.T) {
	ds, err := Parse("text,date,category\nonly text")
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, domain.Record{"text": "only text", "date": "", "category": ""}, ds.Records[0])
}

func TestParseEscapedQuoteIsLiteral(t *testing.T) {
	ds, err := Parse("text,n\n\"say \\\"hi\\\", ok\",1")
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, `say \"hi\", ok`, ds.Records[0]["text"])
	assert.Equal(t, "1", ds.Records[0]["n"])
}

func TestParseStripsWrappingQuotes(t *testing.T) {
	ds, err := Parse("\"text\", 'date' ,\"odd'\n'hello' , \" spaced \" ,x")
	require.NoError(t, err)
	assert.Equal(t, []string{"text", "date", "\"odd'"}, ds.Columns)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "hello", ds.Records[0]["text"])
	assert.Equal(t, "spaced", ds.Records[0]["date"])
}

func TestParseEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\nfoo,bar"} {
		_, err := Parse(raw)
		assert.True(t, errors.Is(err, domain.ErrEmptyInput), "input %q", raw)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	ds, err := Parse("text,date\n\n")
	require.NoError(t, err)
	assert.Empty(t, ds.Records)
	assert.Equal(t, []string{"text", "date"}, ds.Columns)
}

func TestParseDuplicateHeaderKeepsLastValue(t *testing.T) {
	ds, err := Parse("text,text\nfirst,second")
	require.NoError(t, err)
	assert.Equal(t, []string{"text"}, ds.Columns)
	assert.Equal(t, "second", ds.Records[0]["text"])
}

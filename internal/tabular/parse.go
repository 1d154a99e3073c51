// Package tabular turns uploaded files into records and records back into CSV.
package tabular

import (
	"strings"

	"sentilens/internal/domain"
)

const delimiter = ','

// Parse converts delimited text into a dataset. The first line holds the column
// names; every following non-blank line becomes one record. Quoted fields may
// contain the delimiter but not a newline: each physical line is one record.
func Parse(raw string) (domain.Dataset, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return domain.Dataset{}, domain.ErrEmptyInput
	}

	header := parseHeader(lines[0])
	ds := domain.Dataset{Columns: uniqueColumns(header)}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ds.Records = append(ds.Records, buildRecord(header, splitLine(line)))
	}
	return ds, nil
}

func parseHeader(line string) []string {
	tokens := strings.Split(line, string(delimiter))
	for i, tok := range tokens {
		tokens[i] = stripMatchingQuotes(strings.TrimSpace(tok))
	}
	return tokens
}

// splitLine scans one line, splitting on delimiters outside double quotes.
// A quote preceded by a backslash is kept as a literal character.
func splitLine(line string) []string {
	var (
		values  []string
		current strings.Builder
		inQuote bool
		prev    rune
	)
	for i, r := range line {
		switch {
		case r == '"' && (i == 0 || prev != '\\'):
			inQuote = !inQuote
		case r == delimiter && !inQuote:
			values = append(values, cleanValue(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	return append(values, cleanValue(current.String()))
}

// cleanValue trims whitespace, then drops one leading and one trailing quote character.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, `"`) || strings.HasPrefix(v, "'") {
		v = v[1:]
	}
	if strings.HasSuffix(v, `"`) || strings.HasSuffix(v, "'") {
		v = v[:len(v)-1]
	}
	return v
}

func stripMatchingQuotes(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if first == last && (first == '"' || first == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

func buildRecord(header, values []string) domain.Record {
	rec := make(domain.Record, len(header))
	for i, col := range header {
		if i < len(values) {
			rec[col] = values[i]
		} else {
			rec[col] = ""
		}
	}
	return rec
}

// uniqueColumns keeps the first occurrence of each header name.
func uniqueColumns(header []string) []string {
	seen := make(map[string]struct{}, len(header))
	out := make([]string, 0, len(header))
	for _, col := range header {
		if _, ok := seen[col]; ok {
			continue
		}
		seen[col] = struct{}{}
		out = append(out, col)
	}
	return out
}

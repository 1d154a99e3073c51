package analysis

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayLabel normalises a model label for aggregation: "POSITIVE" and "positive"
// both become "Positive".
func DisplayLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return label
	}
	return cases.Title(language.Und).String(label)
}

// Day returns the calendar day of a free-form date value in loc, or "" when the
// value cannot be parsed.
func Day(value string, loc *time.Location) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return ""
	}
	return t.In(loc).Format(time.DateOnly)
}

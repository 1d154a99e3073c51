// Package report renders analysis summaries as markdown and plain-text tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"sentilens/internal/analysis"
	"sentilens/internal/domain"
)

// MaxNgrams caps each n-gram list in a rendered report.
const MaxNgrams = 15

// RenderMarkdown builds the summary posted to chat and printed by the CLI.
func RenderMarkdown(s *analysis.Summary) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("### Sentiment analysis: %s\n\n", s.FileName))
	buf.WriteString(fmt.Sprintf("%d rows, text column `%s`", len(s.Items), s.TextColumn))
	if s.DateColumn != "" {
		buf.WriteString(fmt.Sprintf(", date column `%s`", s.DateColumn))
	}
	buf.WriteString("\n\n")

	writeDistribution(&buf, "Sentiment", s.Sentiments, len(s.Items))
	writeDistribution(&buf, "Emotion", s.Emotions, len(s.Items))

	if len(s.Trend) > 0 {
		buf.WriteString("#### Trend\n\n")
		for _, p := range s.Trend {
			buf.WriteString(fmt.Sprintf("- %s: positive %d, negative %d, neutral %d\n", p.Day, p.Positive, p.Negative, p.Neutral))
		}
		buf.WriteString("\n")
	}

	writeNgrams(&buf, "Bigrams", s.Bigrams.Filtered(), s.Bigrams.Threshold())
	writeNgrams(&buf, "Trigrams", s.Trigrams.Filtered(), s.Trigrams.Threshold())

	return strings.TrimSpace(buf.String()) + "\n"
}

func writeDistribution(buf *strings.Builder, title string, counts []domain.LabelCount, total int) {
	if len(counts) == 0 {
		return
	}
	buf.WriteString(fmt.Sprintf("#### %s\n\n", title))
	for _, c := range counts {
		pct := 0.0
		if total > 0 {
			pct = float64(c.Count) * 100 / float64(total)
		}
		buf.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", c.Label, c.Count, pct))
	}
	buf.WriteString("\n")
}

func writeNgrams(buf *strings.Builder, title string, entries []domain.NgramEntry, threshold int) {
	buf.WriteString(fmt.Sprintf("#### %s (min count %d)\n\n", title, threshold))
	if len(entries) == 0 {
		buf.WriteString("_none_\n\n")
		return
	}
	shown := entries
	if len(shown) > MaxNgrams {
		shown = shown[:MaxNgrams]
	}
	for _, e := range shown {
		buf.WriteString(fmt.Sprintf("- %s (%d)\n", e.Phrase, e.Count))
	}
	if rest := len(entries) - len(shown); rest > 0 {
		buf.WriteString(fmt.Sprintf("- ...and %d more\n", rest))
	}
	buf.WriteString("\n")
}

// WriteTable prints up to limit items as aligned columns; limit <= 0 prints all.
func WriteTable(w io.Writer, items []domain.ClassifiedItem, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSENTIMENT\tEMOTION\tTEXT")
	for i, item := range items {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", item.ID, item.Sentiment, item.Emotion, truncate(item.Text, 80))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Package ngram counts word n-grams over free text.
package ngram

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"sentilens/internal/domain"
)

// DefaultStopwords is used when no stoplist file is configured.
var DefaultStopwords = []string{"a", "an", "the", "is", "and", "or", "but", "to", "of", "in", "on", "at", "for"}

var punctuation = strings.NewReplacer(
	".", " ", ",", " ", "?", " ", "!", " ",
	";", " ", ":", " ", `"`, " ", "'", " ",
)

// Engine tokenizes text and counts n-grams.
type Engine struct {
	stopwords map[string]struct{}
}

// NewEngine creates an engine with the given stop-words. A nil list selects DefaultStopwords.
func NewEngine(stopwords []string) *Engine {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Engine{stopwords: stops}
}

// Tokenize lowercases text, replaces punctuation with spaces and drops single-rune
// tokens and stop-words.
func (e *Engine) Tokenize(text string) []string {
	fields := strings.Fields(punctuation.Replace(strings.ToLower(text)))
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= 1 {
			continue
		}
		if _, stop := e.stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Count slides a window of n tokens over every text and returns the phrases sorted by
// count descending. Equal counts keep the order in which phrases were first seen.
func (e *Engine) Count(texts []string, n int) ([]domain.NgramEntry, error) {
	if n < 2 {
		return nil, fmt.Errorf("ngram: window size %d, must be at least 2", n)
	}

	index := make(map[string]int)
	var entries []domain.NgramEntry
	for _, text := range texts {
		tokens := e.Tokenize(text)
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if pos, ok := index[phrase]; ok {
				entries[pos].Count++
				continue
			}
			index[phrase] = len(entries)
			entries = append(entries, domain.NgramEntry{Phrase: phrase, Count: 1})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries, nil
}

// FilterByThreshold returns the entries with Count >= min, keeping their order.
func FilterByThreshold(entries []domain.NgramEntry, min int) []domain.NgramEntry {
	out := make([]domain.NgramEntry, 0, len(entries))
	for _, e := range entries {
		if e.Count >= min {
			out = append(out, e)
		}
	}
	return out
}

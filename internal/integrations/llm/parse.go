package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sentilens/internal/domain"
)

type batchResponse struct {
	Result []domain.Labels `json:"result"`
}

// ParseBatchResponse decodes {"result":[...]} from model output, tolerating code fences
// and text around the JSON object.
func ParseBatchResponse(content string) ([]domain.Labels, error) {
	raw, err := extractJSON(stripCodeFence(content))
	if err != nil {
		return nil, &domain.MalformedResponseError{Err: err}
	}
	var resp batchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &domain.MalformedResponseError{Err: fmt.Errorf("decoding result: %w", err)}
	}
	if resp.Result == nil {
		return nil, &domain.MalformedResponseError{Err: errors.New(`missing "result" array`)}
	}
	return resp.Result, nil
}

// ParseSingleResponse accepts either a one-entry result array or a bare
// {"sentiment":..,"emotion":..} object.
func ParseSingleResponse(content string) (domain.Labels, error) {
	if labels, err := ParseBatchResponse(content); err == nil {
		if len(labels) == 0 {
			return domain.Labels{}, &domain.MalformedResponseError{Err: errors.New("empty result array")}
		}
		return labels[0], nil
	}

	raw, err := extractJSON(stripCodeFence(content))
	if err != nil {
		return domain.Labels{}, &domain.MalformedResponseError{Err: err}
	}
	var labels domain.Labels
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return domain.Labels{}, &domain.MalformedResponseError{Err: fmt.Errorf("decoding labels: %w", err)}
	}
	if labels.Sentiment == "" && labels.Emotion == "" {
		return domain.Labels{}, &domain.MalformedResponseError{Err: errors.New("no sentiment or emotion in response")}
	}
	return labels, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", errors.New("no JSON object found in response")
	}
	return s[start : end+1], nil
}

package domain

const (
	// LabelUnknown is assigned when no classification result is available for an item.
	LabelUnknown = "Unknown"
	// LabelError is assigned to every item of a batch whose classification call failed.
	LabelError = "Error"
)

// Labels is one classification result as returned by the model.
type Labels struct {
	Sentiment string `json:"sentiment"`
	Emotion   string `json:"emotion"`
}

// UnknownLabels returns the placeholder used before a response arrives.
func UnknownLabels() Labels {
	return Labels{Sentiment: LabelUnknown, Emotion: LabelUnknown}
}

// ErrorLabels returns the placeholder used for failed batches.
func ErrorLabels() Labels {
	return Labels{Sentiment: LabelError, Emotion: LabelError}
}

// OrUnknown fills empty fields with LabelUnknown.
func (l Labels) OrUnknown() Labels {
	if l.Sentiment == "" {
		l.Sentiment = LabelUnknown
	}
	if l.Emotion == "" {
		l.Emotion = LabelUnknown
	}
	return l
}

// ClassifiedItem ties one input row to its classification.
type ClassifiedItem struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Record    Record `json:"original_record"`
	Sentiment string `json:"sentiment"`
	Emotion   string `json:"emotion"`
}

// Labels returns the item's sentiment and emotion.
func (c ClassifiedItem) Labels() Labels {
	return Labels{Sentiment: c.Sentiment, Emotion: c.Emotion}
}

// NgramEntry is a phrase with its occurrence count.
type NgramEntry struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// TrendPoint is the per-day sentiment tally.
type TrendPoint struct {
	Day      string `json:"day"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
}

// LabelCount is one bar of a label distribution.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

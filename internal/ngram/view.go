package ngram

import "sentilens/internal/domain"

// View pairs a full n-gram list with the threshold currently applied to it.
// Changing the threshold never touches All.
type View struct {
	All       []domain.NgramEntry
	threshold int
}

// NewView wraps entries with the given threshold.
func NewView(all []domain.NgramEntry, threshold int) *View {
	v := &View{All: all}
	v.SetThreshold(threshold)
	return v
}

// SetThreshold updates the minimum count. Values below 1 are treated as 1.
func (v *View) SetThreshold(threshold int) {
	if threshold < 1 {
		threshold = 1
	}
	v.threshold = threshold
}

func (v *View) Threshold() int {
	return v.threshold
}

// Filtered returns the entries passing the current threshold.
func (v *View) Filtered() []domain.NgramEntry {
	return FilterByThreshold(v.All, v.threshold)
}

// MaxCount returns the highest count in All, or 0 when empty.
func (v *View) MaxCount() int {
	max := 0
	for _, e := range v.All {
		if e.Count > max {
			max = e.Count
		}
	}
	return max
}

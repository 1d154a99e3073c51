package tabular

import (
	"strings"

	"sentilens/internal/domain"
)

// ColumnPreference lists header names to try, in order, when the user did not pick a column.
type ColumnPreference struct {
	Names    []string
	FoldCase bool
}

var (
	TextColumns = ColumnPreference{
		Names: []string{"text", "message", "content", "description", "comment", "feedback"},
	}
	DateColumns = ColumnPreference{
		Names:    []string{"date", "timestamp", "created_at", "created", "time", "event_date", "transaction_date"},
		FoldCase: true,
	}
)

// ResolveColumn picks a column: the user's choice when it exists, then the first
// preferred name present, then the first column. It reports false only when the
// dataset has no records.
func ResolveColumn(ds domain.Dataset, userName string, pref ColumnPreference) (string, bool) {
	if ds.Len() == 0 || len(ds.Columns) == 0 {
		return "", false
	}
	if userName = strings.TrimSpace(userName); userName != "" && ds.HasColumn(userName) {
		return userName, true
	}
	for _, cand := range pref.Names {
		for _, col := range ds.Columns {
			if col == cand || (pref.FoldCase && strings.EqualFold(col, cand)) {
				return col, true
			}
		}
	}
	return ds.Columns[0], true
}

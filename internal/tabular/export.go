package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"sentilens/internal/domain"
)

// Export writes the original columns followed by Sentiment and Emotion, one row per
// item in input order. Fields containing the delimiter or quotes are quoted.
func Export(w io.Writer, columns []string, items []domain.ClassifiedItem) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(columns)+2)
	header = append(header, columns...)
	header = append(header, "Sentiment", "Emotion")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	row := make([]string, len(header))
	for _, item := range items {
		for i, col := range columns {
			row[i] = item.Record[col]
		}
		row[len(columns)] = item.Sentiment
		row[len(columns)+1] = item.Emotion
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row %d: %w", item.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportBytes is Export into memory.
func ExportBytes(columns []string, items []domain.ClassifiedItem) ([]byte, error) {
	var buf bytes.Buffer
	if err := Export(&buf, columns, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package tabular

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"sentilens/internal/domain"
)

// IsSupported reports whether the file name has an extension Decode understands.
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	default:
		return false
	}
}

// Decode dispatches on the file extension: .xlsx goes to the spreadsheet decoder,
// everything else is treated as delimited text.
func Decode(name string, data []byte) (domain.Dataset, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return DecodeSpreadsheet(bytes.NewReader(data))
	}
	text, err := DecodeText(data)
	if err != nil {
		return domain.Dataset{}, err
	}
	return Parse(text)
}

// DecodeText converts raw bytes to a string, honouring a UTF-8 or UTF-16 byte order
// mark. Input without a BOM is read as UTF-8.
func DecodeText(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}

// DecodeSpreadsheet reads the first sheet of an XLSX workbook. The first non-empty
// row holds the column names; fully empty rows are skipped.
func DecodeSpreadsheet(r io.Reader) (domain.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Dataset{}, domain.ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	start := 0
	for start < len(rows) && isBlankRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return domain.Dataset{}, domain.ErrEmptyInput
	}

	header := sheetHeader(rows[start])
	ds := domain.Dataset{Columns: uniqueColumns(header)}
	for _, row := range rows[start+1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell)
		}
		ds.Records = append(ds.Records, buildRecord(header, cells))
	}
	return ds, nil
}

// sheetHeader names blank header cells __EMPTY, __EMPTY_1, ... so that every
// column keeps a distinct key.
func sheetHeader(row []string) []string {
	header := make([]string, len(row))
	empty := 0
	for i, cell := range row {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = "__EMPTY"
			if empty > 0 {
				name = fmt.Sprintf("__EMPTY_%d", empty)
			}
			empty++
		}
		header[i] = name
	}
	return header
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

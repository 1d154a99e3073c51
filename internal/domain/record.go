package domain

// Record maps a column name to the raw cell value of one row.
type Record map[string]string

// Dataset is the parsed content of one uploaded file. Columns keeps header order.
type Dataset struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// HasColumn reports whether name is one of the dataset's columns.
func (d Dataset) HasColumn(name string) bool {
	for _, col := range d.Columns {
		if col == name {
			return true
		}
	}
	return false
}

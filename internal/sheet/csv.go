package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadCSV loads a CSV file into an ordered sequence of row mappings using
// the same header and cell normalization rules as workbook sheets.
func ReadCSV(path string) ([]*Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are padded with Null below

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = normalizeHeader(h)
	}

	var rows []*Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		row := NewRow()
		for i, h := range headers {
			if h == "" {
				continue
			}
			var cell string
			if i < len(record) {
				cell = record[i]
			}
			row.Set(h, cellValue(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

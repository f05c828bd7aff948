package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/plew99/cytokines-metaanalysis/internal/util"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// Workbook wraps an open XLSX file
type Workbook struct {
	f *excelize.File
}

// OpenWorkbook opens an XLSX workbook for reading
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s (%w): %v", path, util.ErrCorrupt, err)
	}
	return &Workbook{f: f}, nil
}

// Close releases the underlying file
func (w *Workbook) Close() error {
	return w.f.Close()
}

// SheetNames returns the workbook's sheet names in file order
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Lookup finds the actual sheet name matching a logical name.
// Matching is case-insensitive and whitespace-trimmed to tolerate
// operator-supplied files with inconsistent casing.
func (w *Workbook) Lookup(logical string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(logical))
	for _, name := range w.f.GetSheetList() {
		if strings.ToLower(strings.TrimSpace(name)) == want {
			return name, true
		}
	}
	return "", false
}

// Rows loads a sheet into an ordered sequence of row mappings. The first
// row supplies column headers; header names are NFC-normalized and trimmed
// of surrounding whitespace. Duplicate headers after trimming are undefined
// behavior: the last occurrence wins. Empty cells become the Null sentinel.
func (w *Workbook) Rows(name string) ([]*Row, error) {
	raw, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = normalizeHeader(h)
	}

	rows := make([]*Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := NewRow()
		for i, header := range headers {
			if header == "" {
				continue
			}
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			row.Set(header, cellValue(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// normalizeHeader trims surrounding whitespace and applies Unicode NFC so
// visually identical headers compare equal
func normalizeHeader(h string) string {
	return strings.TrimSpace(norm.NFC.String(h))
}

// cellValue converts a raw cell string into a Value, sniffing numerics the
// way dataframe loaders do so typed columns arrive as numbers
func cellValue(cell string) Value {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Number(f, trimmed)
	}
	return String(cell)
}

// Package sheet loads tabular sources (XLSX workbooks, CSV files) into
// ordered sequences of row mappings with one uniform missing-value sentinel.
package sheet

import "strconv"

// Kind discriminates the scalar variants a cell value can take
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a tagged union over the scalar types a spreadsheet cell can hold.
// Empty cells and empty strings are represented by the single Null value so
// downstream code tests for one absence representation only.
type Value struct {
	kind Kind
	s    string
	f    float64
	b    bool
}

// Null returns the missing-value sentinel
func Null() Value {
	return Value{kind: KindNull}
}

// String wraps a string cell value; the empty string collapses to Null
func String(s string) Value {
	if s == "" {
		return Null()
	}
	return Value{kind: KindString, s: s}
}

// Number wraps a numeric cell value, preserving its original text form
func Number(f float64, raw string) Value {
	return Value{kind: KindNumber, s: raw, f: f}
}

// Bool wraps a boolean cell value
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the variant this value holds
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is the missing sentinel
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Raw returns the original textual form of the cell, or "" for Null
func (v Value) Raw() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// Float returns the numeric value and whether the value is a number
func (v Value) Float() (float64, bool) {
	if v.kind == KindNumber {
		return v.f, true
	}
	return 0, false
}

// Any unwraps the value to a plain scalar (string, float64, bool or nil)
// for coercion and JSON serialization
func (v Value) Any() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.f
	case KindBool:
		return v.b
	}
	return nil
}

// Row is an ordered mapping from column name to cell value. Column order is
// the spreadsheet's column order; row construction preserves it so that
// dedup keys built from row values are deterministic.
type Row struct {
	cols []string
	vals map[string]Value
}

// NewRow creates an empty row that will preserve column insertion order
func NewRow() *Row {
	return &Row{vals: make(map[string]Value)}
}

// Set stores a value under the given column, appending the column to the
// ordering on first sight. Setting a duplicate column overwrites the value
// (last wins), mirroring duplicate-header behavior of the loaders.
func (r *Row) Set(col string, v Value) {
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = v
}

// Get returns the value for a column, or Null when the column is absent
func (r *Row) Get(col string) Value {
	if v, ok := r.vals[col]; ok {
		return v
	}
	return Null()
}

// Has reports whether the column exists in this row
func (r *Row) Has(col string) bool {
	_, ok := r.vals[col]
	return ok
}

// Columns returns the column names in spreadsheet order
func (r *Row) Columns() []string {
	return r.cols
}

// Len returns the number of columns in the row
func (r *Row) Len() int {
	return len(r.cols)
}

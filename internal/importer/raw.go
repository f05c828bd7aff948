package importer

import (
	"strconv"
	"strings"

	"github.com/plew99/cytokines-metaanalysis/internal/coerce"
	"github.com/plew99/cytokines-metaanalysis/internal/sheet"
	"github.com/plew99/cytokines-metaanalysis/internal/store"
)

// Typed columns of the flat biomarker sheet. Everything else passes through
// as-is. The column spellings (including typos) follow the source workbook.
var (
	rawIntFields = map[string]bool{
		"Year":       true,
		"n":          true,
		"NYHA Scale": true,
	}

	rawFloatFields = map[string]bool{
		"Age (mean / median)":                   true,
		"Age (SD / IQR)":                        true,
		"% Males":                               true,
		"Cytokine contrentration mean / median": true,
		"Cytokine concentration SD / IQR":       true,
		"LVEF %":                                true,
		"CRP":                                   true,
		"NT-proBNP":                             true,
		"cTnT":                                  true,
		"cTnI":                                  true,
		"Follow-up time (months)":               true,
	}

	rawBoolFields = map[string]bool{
		"Inflammation excluded by EMB": true,
		"CAD excluded":                 true,
		"EMB performed?":               true,
		"cMRI performed":               true,
	}
)

// BuildRawRecords converts flat-sheet rows into raw records, coercing the
// typed columns. Coercion failure does not drop the row: the original
// string is preserved and the column is appended to the record's invalid
// list, so downstream consumers can decide how to treat it.
func BuildRawRecords(rows []*sheet.Row) []*store.RawRecord {
	records := make([]*store.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, buildRawRecord(row))
	}
	return records
}

// buildRawRecord coerces one flat-sheet row into a raw record
func buildRawRecord(row *sheet.Row) *store.RawRecord {
	rec := &store.RawRecord{Data: make(map[string]interface{}, row.Len())}
	for _, col := range row.Columns() {
		v := row.Get(col)
		if v.IsNull() {
			rec.Data[col] = nil
			continue
		}
		switch {
		case rawBoolFields[col]:
			if b, ok := coerce.ParseBool(v.Any()); ok {
				rec.Data[col] = b
			} else {
				rec.Data[col] = v.Raw()
				rec.Invalid = append(rec.Invalid, col)
			}
		case rawIntFields[col]:
			if n, ok := coerce.ParseInt(v.Any()); ok {
				rec.Data[col] = n
			} else {
				rec.Data[col] = v.Raw()
				rec.Invalid = append(rec.Invalid, col)
			}
		case rawFloatFields[col]:
			if f, ok := rawFloat(v); ok {
				rec.Data[col] = f
			} else {
				rec.Data[col] = v.Raw()
				rec.Invalid = append(rec.Invalid, col)
			}
		default:
			rec.Data[col] = v.Any()
		}
	}
	return rec
}

// rawFloat applies the strict float coercion of the raw path: plain decimal
// notation only. Comma decimals and ranges are left to the derivation step,
// which reads them back through the lenient parser.
func rawFloat(v sheet.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Raw()), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

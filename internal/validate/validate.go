// Package validate checks row mappings against per-entity required-field
// rules. Validation is row-local and stateless: it never consults other
// rows or persisted state.
package validate

import (
	"strings"

	"github.com/plew99/cytokines-metaanalysis/internal/sheet"
)

// FieldError describes one missing required field on a row
type FieldError struct {
	Field   string
	Message string
}

// Row returns one FieldError per required field whose value is null or an
// empty string. An empty result means the row is admissible.
func Row(row *sheet.Row, required []string) []FieldError {
	var errs []FieldError
	for _, field := range required {
		v := row.Get(field)
		if v.IsNull() || strings.TrimSpace(v.Raw()) == "" {
			errs = append(errs, FieldError{Field: field, Message: "missing required field"})
		}
	}
	return errs
}

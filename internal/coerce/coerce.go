// Package coerce converts raw spreadsheet cell values into typed scalars.
//
// Spreadsheet cells arrive as strings, numbers, booleans or nothing at all,
// and the strings are messy: comma decimal separators ("5,1"), ranges
// ("0,49-28,50"), Yes/No flags, free-text summary descriptors ("Mean±SD").
// Every function here is pure and total: malformed input is reported through
// the ok return value, never through a panic or an error.
package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Take selects which end of a numeric range to extract
type Take int

const (
	// TakeFirst extracts the first number found in the string
	TakeFirst Take = iota
	// TakeLast extracts the last number found in the string
	TakeLast
)

// ParseBool converts common textual truthy/falsey values to a bool.
// Blank input and unrecognized text both return ok=false; the caller decides
// whether that counts as missing or as an invalid field.
func ParseBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, true
	case float64:
		// Number-sniffed cells: 1/0 carry the same meaning as "1"/"0"
		if t == 1 {
			return true, true
		}
		if t == 0 {
			return false, true
		}
		return false, false
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "1", "t", "true":
			return true, true
		case "no", "n", "0", "f", "false":
			return false, true
		}
		return false, false
	}
	return false, false
}

// numberPattern matches unsigned decimal numbers after comma separators have
// been normalized to dots. The sign is handled separately so that range
// strings like "0.49-28.50" do not turn the upper bound negative.
var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseFloat extracts a float from a raw cell value.
//
// Native numeric values pass through directly. Strings are normalized
// (comma decimal separator to dot), then every decimal substring is located
// and the first or last is returned depending on take. This handles ranged
// values like "0,49-28,50" where the caller chooses which end it wants.
// Blank or unparseable input returns ok=false.
func ParseFloat(v interface{}, take Take) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		matches := numberPattern.FindAllString(s, -1)
		if len(matches) == 0 {
			return 0, false
		}
		var pick string
		if take == TakeLast {
			pick = matches[len(matches)-1]
		} else {
			pick = matches[0]
		}
		f, err := strconv.ParseFloat(pick, 64)
		if err != nil {
			return 0, false
		}
		// A leading minus applies to the first number only; inner dashes
		// separate range bounds.
		if take == TakeFirst && strings.HasPrefix(s, "-") {
			f = -f
		}
		return f, true
	}
	return 0, false
}

// ParseInt converts a raw cell value to an integer.
//
// Unlike ParseFloat this is strict: the value must be a whole number
// ("2013" or 2013.0 qualify, "20X3" and 58.4 do not). Integer fields are
// schema-typed, so a failure here is recorded as an invalid field rather
// than silently nulled.
func ParseInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int64(t), true
		}
		return 0, false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
			return int64(f), true
		}
		return 0, false
	}
	return 0, false
}

// Central classifies the central-tendency half of a summary descriptor
type Central string

const (
	CentralMean    Central = "mean"
	CentralMedian  Central = "median"
	CentralUnknown Central = "unknown"
)

// Dispersion classifies the dispersion half of a summary descriptor
type Dispersion string

const (
	DispersionSD      Dispersion = "sd"
	DispersionIQR     Dispersion = "iqr"
	DispersionP2575   Dispersion = "p25-75"
	DispersionMinMax  Dispersion = "min-max"
	DispersionUnknown Dispersion = "unknown"
)

// ParseDescriptor classifies a free-text summary descriptor such as
// "Mean±SD" or "Median (IQR)" into its central-tendency and dispersion
// components. Matching is by substring on the lowercased text; the first
// matching rule wins and unmatched axes default to unknown.
func ParseDescriptor(text string) (Central, Dispersion) {
	s := strings.ToLower(text)

	central := CentralUnknown
	switch {
	case strings.Contains(s, "mean"):
		central = CentralMean
	case strings.Contains(s, "median"):
		central = CentralMedian
	}

	dispersion := DispersionUnknown
	switch {
	case strings.Contains(s, "sd"):
		dispersion = DispersionSD
	case strings.Contains(s, "iqr"):
		dispersion = DispersionIQR
	case strings.Contains(s, "25") && strings.Contains(s, "75"):
		dispersion = DispersionP2575
	case strings.Contains(s, "min") && strings.Contains(s, "max"):
		dispersion = DispersionMinMax
	}

	return central, dispersion
}

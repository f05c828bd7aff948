// Package report externalizes import diagnostics: row-level validation
// failures go to a timestamped CSV artifact for operator review, and
// pipeline progress goes to a JSONL event log.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RowError is one row-level failure encountered during an import
type RowError struct {
	Record  string // record identifier (sheet id column or row index)
	Message string
	Sheet   string
	Column  string
}

// WriteErrorReport serializes the flattened error list to a new timestamped
// CSV file under dir, creating the directory if absent. Each invocation
// produces a fresh artifact; reports are write-once and never appended to.
func WriteErrorReport(dir string, errs []RowError) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	ts := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("import_%s.csv", ts))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create error report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"record", "error", "sheet", "column"}); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}
	for _, e := range errs {
		if err := w.Write([]string{e.Record, e.Message, e.Sheet, e.Column}); err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report: %w", err)
	}

	return path, nil
}

package store

import (
	"fmt"
	"time"
)

// Import run terminal states
const (
	RunCommitted  = "committed"
	RunRolledBack = "rolled_back"
)

// ImportRun is the audit record of one import invocation
type ImportRun struct {
	ID         string
	Kind       string
	Source     string
	State      string
	Objects    int
	Errors     int
	ReportPath string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RecordImportRun writes the audit row for a finished import run
func (s *Store) RecordImportRun(r *ImportRun) error {
	_, err := s.q.Exec(`
		INSERT INTO import_runs (id, kind, source, state, objects, errors, report_path, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Kind, r.Source, r.State, r.Objects, r.Errors, r.ReportPath, r.StartedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record import run: %w", err)
	}
	return nil
}

// ListImportRuns returns the most recent import runs, newest first
func (s *Store) ListImportRuns(limit int) ([]*ImportRun, error) {
	rows, err := s.q.Query(`
		SELECT id, kind, COALESCE(source, ''), state, objects, errors, COALESCE(report_path, ''), started_at, finished_at
		FROM import_runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		r := &ImportRun{}
		err := rows.Scan(&r.ID, &r.Kind, &r.Source, &r.State, &r.Objects, &r.Errors,
			&r.ReportPath, &r.StartedAt, &r.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

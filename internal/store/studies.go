package store

import (
	"database/sql"
	"fmt"
)

// Study represents one research publication
type Study struct {
	ID          int64
	Title       string
	FirstAuthor *string
	Year        *int64
	Country     *string
	Design      *string
	Notes       *string
}

// InsertStudy inserts a study. A non-zero ID is written explicitly so that
// sheet-provided identifiers stay stable for cross-sheet references;
// otherwise the generated ID is filled in on return.
func (s *Store) InsertStudy(st *Study) error {
	if st.ID != 0 {
		_, err := s.q.Exec(`
			INSERT INTO studies (id, title, first_author, year, country, design, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, st.ID, st.Title, st.FirstAuthor, st.Year, st.Country, st.Design, st.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert study: %w", err)
		}
		return nil
	}

	result, err := s.q.Exec(`
		INSERT INTO studies (title, first_author, year, country, design, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, st.Title, st.FirstAuthor, st.Year, st.Country, st.Design, st.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert study: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get study ID: %w", err)
	}
	st.ID = id
	return nil
}

func scanStudy(row *sql.Row) (*Study, error) {
	st := &Study{}
	err := row.Scan(&st.ID, &st.Title, &st.FirstAuthor, &st.Year, &st.Country, &st.Design, &st.Notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan study: %w", err)
	}
	return st, nil
}

// GetStudyByID retrieves a study by its primary key, or nil when absent
func (s *Store) GetStudyByID(id int64) (*Study, error) {
	return scanStudy(s.q.QueryRow(`
		SELECT id, title, first_author, year, country, design, notes
		FROM studies WHERE id = ?
	`, id))
}

// GetStudyByTitle retrieves a study by its natural key, or nil when absent.
// Title matching is exact; if duplicate titles exist the earliest row wins.
func (s *Store) GetStudyByTitle(title string) (*Study, error) {
	return scanStudy(s.q.QueryRow(`
		SELECT id, title, first_author, year, country, design, notes
		FROM studies WHERE title = ? ORDER BY id LIMIT 1
	`, title))
}

// ListStudies returns all studies ordered by insertion
func (s *Store) ListStudies() ([]*Study, error) {
	rows, err := s.q.Query(`
		SELECT id, title, first_author, year, country, design, notes
		FROM studies ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query studies: %w", err)
	}
	defer rows.Close()

	var studies []*Study
	for rows.Next() {
		st := &Study{}
		err := rows.Scan(&st.ID, &st.Title, &st.FirstAuthor, &st.Year, &st.Country, &st.Design, &st.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		studies = append(studies, st)
	}
	return studies, rows.Err()
}

// CountStudies returns the number of persisted studies
func (s *Store) CountStudies() (int, error) {
	return s.count("SELECT COUNT(*) FROM studies")
}

// DeleteAllStudies removes every study; dependents cascade
func (s *Store) DeleteAllStudies() error {
	if _, err := s.q.Exec("DELETE FROM studies"); err != nil {
		return fmt.Errorf("failed to delete studies: %w", err)
	}
	return nil
}

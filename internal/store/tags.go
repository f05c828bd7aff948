package store

import (
	"database/sql"
	"fmt"
)

// Tag is a study label deduplicated globally by name
type Tag struct {
	ID   int64
	Name string
}

// InsertTag inserts a tag row
func (s *Store) InsertTag(t *Tag) error {
	result, err := s.q.Exec("INSERT INTO tags (name) VALUES (?)", t.Name)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get tag ID: %w", err)
	}
	t.ID = id
	return nil
}

// GetTagByName retrieves a tag by name, or nil when absent
func (s *Store) GetTagByName(name string) (*Tag, error) {
	t := &Tag{}
	err := s.q.QueryRow("SELECT id, name FROM tags WHERE name = ?", name).Scan(&t.ID, &t.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

// LinkStudyTag attaches a tag to a study's tag collection. Linking the same
// pair twice is a no-op.
func (s *Store) LinkStudyTag(studyID, tagID int64) error {
	_, err := s.q.Exec(`
		INSERT INTO study_tags (study_id, tag_id) VALUES (?, ?)
		ON CONFLICT(study_id, tag_id) DO NOTHING
	`, studyID, tagID)
	if err != nil {
		return fmt.Errorf("failed to link tag: %w", err)
	}
	return nil
}

// GetStudyTags returns the tags linked to a study
func (s *Store) GetStudyTags(studyID int64) ([]*Tag, error) {
	rows, err := s.q.Query(`
		SELECT t.id, t.name FROM tags t
		JOIN study_tags st ON st.tag_id = t.id
		WHERE st.study_id = ?
		ORDER BY t.id
	`, studyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study tags: %w", err)
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		t := &Tag{}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CountTags returns the number of persisted tags
func (s *Store) CountTags() (int, error) {
	return s.count("SELECT COUNT(*) FROM tags")
}

// DeleteAllTags removes every tag and its study links
func (s *Store) DeleteAllTags() error {
	if _, err := s.q.Exec("DELETE FROM study_tags"); err != nil {
		return fmt.Errorf("failed to delete study tags: %w", err)
	}
	if _, err := s.q.Exec("DELETE FROM tags"); err != nil {
		return fmt.Errorf("failed to delete tags: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// StudyGroup is a denormalized participant group derived from raw records.
// GroupKey is the canonical encoding of the group-defining attribute values;
// (study_id, group_key) is unique so re-derivation reuses existing groups.
type StudyGroup struct {
	ID       int64
	StudyID  int64
	GroupKey string
	N        *int64
	Attrs    map[string]interface{}
}

// GroupOutcome is one measured biomarker result linked to a derived group
type GroupOutcome struct {
	ID             int64
	GroupID        int64
	OutcomeID      int64
	Value          *float64
	ValueType      string
	Dispersion     *float64
	DispersionType string
	Unit           *string
}

// InsertStudyGroup persists a derived group and fills in its generated ID
func (s *Store) InsertStudyGroup(g *StudyGroup) error {
	attrs, err := json.Marshal(g.Attrs)
	if err != nil {
		return fmt.Errorf("failed to marshal group attrs: %w", err)
	}

	result, err := s.q.Exec(`
		INSERT INTO study_groups (study_id, group_key, n, attrs) VALUES (?, ?, ?, ?)
	`, g.StudyID, g.GroupKey, g.N, string(attrs))
	if err != nil {
		return fmt.Errorf("failed to insert study group: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get study group ID: %w", err)
	}
	g.ID = id
	return nil
}

// GetStudyGroupByKey retrieves a derived group by its computed key, or nil
func (s *Store) GetStudyGroupByKey(studyID int64, key string) (*StudyGroup, error) {
	g := &StudyGroup{}
	var attrs string
	err := s.q.QueryRow(`
		SELECT id, study_id, group_key, n, attrs
		FROM study_groups WHERE study_id = ? AND group_key = ?
	`, studyID, key).Scan(&g.ID, &g.StudyID, &g.GroupKey, &g.N, &attrs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study group: %w", err)
	}
	if err := json.Unmarshal([]byte(attrs), &g.Attrs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal group attrs: %w", err)
	}
	return g, nil
}

// ListStudyGroups returns the derived groups for one study
func (s *Store) ListStudyGroups(studyID int64) ([]*StudyGroup, error) {
	rows, err := s.q.Query(`
		SELECT id, study_id, group_key, n, attrs
		FROM study_groups WHERE study_id = ? ORDER BY id
	`, studyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study groups: %w", err)
	}
	defer rows.Close()

	var groups []*StudyGroup
	for rows.Next() {
		g := &StudyGroup{}
		var attrs string
		if err := rows.Scan(&g.ID, &g.StudyID, &g.GroupKey, &g.N, &attrs); err != nil {
			return nil, fmt.Errorf("failed to scan study group: %w", err)
		}
		if err := json.Unmarshal([]byte(attrs), &g.Attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal group attrs: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// InsertGroupOutcome persists one measured result for a derived group
func (s *Store) InsertGroupOutcome(o *GroupOutcome) error {
	result, err := s.q.Exec(`
		INSERT INTO group_outcomes (group_id, outcome_id, value, value_type, dispersion, dispersion_type, unit)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, o.GroupID, o.OutcomeID, o.Value, o.ValueType, o.Dispersion, o.DispersionType, o.Unit)
	if err != nil {
		return fmt.Errorf("failed to insert group outcome: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get group outcome ID: %w", err)
	}
	o.ID = id
	return nil
}

// ListGroupOutcomes returns the measured results linked to a group
func (s *Store) ListGroupOutcomes(groupID int64) ([]*GroupOutcome, error) {
	rows, err := s.q.Query(`
		SELECT id, group_id, outcome_id, value, value_type, dispersion, dispersion_type, unit
		FROM group_outcomes WHERE group_id = ? ORDER BY id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*GroupOutcome
	for rows.Next() {
		o := &GroupOutcome{}
		err := rows.Scan(&o.ID, &o.GroupID, &o.OutcomeID, &o.Value, &o.ValueType,
			&o.Dispersion, &o.DispersionType, &o.Unit)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// CountStudyGroups returns the number of derived groups across all studies
func (s *Store) CountStudyGroups() (int, error) {
	return s.count("SELECT COUNT(*) FROM study_groups")
}

// CountGroupOutcomes returns the number of persisted group results
func (s *Store) CountGroupOutcomes() (int, error) {
	return s.count("SELECT COUNT(*) FROM group_outcomes")
}

// DeleteAllStudyGroups removes every derived group; linked results cascade
func (s *Store) DeleteAllStudyGroups() error {
	if _, err := s.q.Exec("DELETE FROM study_groups"); err != nil {
		return fmt.Errorf("failed to delete study groups: %w", err)
	}
	return nil
}

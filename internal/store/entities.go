package store

import (
	"database/sql"
	"fmt"
)

// Arm represents a participant group within a study
type Arm struct {
	ID                   int64
	StudyID              int64
	Label                *string
	N                    *int64
	AgeMean              *float64
	AgeSD                *float64
	PercentMale          *float64
	Ethnicity            *string
	InflammationExcluded *bool
	CADExcluded          *bool
	DiseaseConfirmation  *string
	Notes                *string
}

// Outcome represents a measured variable within a study. The natural key is
// (study, name, unit, method); callers reuse matching rows instead of
// creating duplicates.
type Outcome struct {
	ID        int64
	StudyID   int64
	Name      string
	Unit      *string
	Method    *string
	Direction *string
}

// Effect types form a fixed enumeration
const (
	EffectSMD   = "smd"    // standardized mean difference
	EffectMD    = "md"     // mean difference
	EffectLogOR = "log_or" // log odds-ratio
	EffectRR    = "rr"     // risk ratio
)

// Effect represents a quantitative effect size or arm-level statistic
type Effect struct {
	ID         int64
	StudyID    int64
	OutcomeID  int64
	Arm1ID     *int64
	Arm2ID     *int64
	EffectType string
	Value      *float64
	SE         *float64
	CILower    *float64
	CIUpper    *float64
	Mean1      *float64
	SD1        *float64
	N1         *int64
	Mean2      *float64
	SD2        *float64
	N2         *int64
	Events1    *int64
	Total1     *int64
	Events2    *int64
	Total2     *int64
}

// Covariate is a simple (study, name, value) association
type Covariate struct {
	ID      int64
	StudyID int64
	Name    string
	Value   *string
}

// ValidEffectType reports whether t is one of the fixed effect types
func ValidEffectType(t string) bool {
	switch t {
	case EffectSMD, EffectMD, EffectLogOR, EffectRR:
		return true
	}
	return false
}

// InsertArm inserts an arm, honoring a sheet-provided ID when present
func (s *Store) InsertArm(a *Arm) error {
	if a.ID != 0 {
		_, err := s.q.Exec(`
			INSERT INTO arms (id, study_id, label, n, age_mean, age_sd, percent_male,
				ethnicity, inflammation_excluded, cad_excluded, disease_confirmation, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.StudyID, a.Label, a.N, a.AgeMean, a.AgeSD, a.PercentMale,
			a.Ethnicity, a.InflammationExcluded, a.CADExcluded, a.DiseaseConfirmation, a.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert arm: %w", err)
		}
		return nil
	}

	result, err := s.q.Exec(`
		INSERT INTO arms (study_id, label, n, age_mean, age_sd, percent_male,
			ethnicity, inflammation_excluded, cad_excluded, disease_confirmation, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.StudyID, a.Label, a.N, a.AgeMean, a.AgeSD, a.PercentMale,
		a.Ethnicity, a.InflammationExcluded, a.CADExcluded, a.DiseaseConfirmation, a.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert arm: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get arm ID: %w", err)
	}
	a.ID = id
	return nil
}

// InsertOutcome inserts an outcome, honoring a sheet-provided ID when present
func (s *Store) InsertOutcome(o *Outcome) error {
	if o.ID != 0 {
		_, err := s.q.Exec(`
			INSERT INTO outcomes (id, study_id, name, unit, method, direction)
			VALUES (?, ?, ?, ?, ?, ?)
		`, o.ID, o.StudyID, o.Name, o.Unit, o.Method, o.Direction)
		if err != nil {
			return fmt.Errorf("failed to insert outcome: %w", err)
		}
		return nil
	}

	result, err := s.q.Exec(`
		INSERT INTO outcomes (study_id, name, unit, method, direction)
		VALUES (?, ?, ?, ?, ?)
	`, o.StudyID, o.Name, o.Unit, o.Method, o.Direction)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get outcome ID: %w", err)
	}
	o.ID = id
	return nil
}

// GetOutcomeByKey retrieves an outcome by its natural key, or nil when
// absent. NULL unit and method compare as equal to absent values.
func (s *Store) GetOutcomeByKey(studyID int64, name string, unit, method *string) (*Outcome, error) {
	o := &Outcome{}
	err := s.q.QueryRow(`
		SELECT id, study_id, name, unit, method, direction
		FROM outcomes
		WHERE study_id = ? AND name = ? AND unit IS ? AND method IS ?
		LIMIT 1
	`, studyID, name, unit, method).Scan(
		&o.ID, &o.StudyID, &o.Name, &o.Unit, &o.Method, &o.Direction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	return o, nil
}

// InsertEffect inserts an effect, honoring a sheet-provided ID when present
func (s *Store) InsertEffect(e *Effect) error {
	if e.ID != 0 {
		_, err := s.q.Exec(`
			INSERT INTO effects (id, study_id, outcome_id, arm1_id, arm2_id, effect_type,
				value, se, ci_lower, ci_upper, mean1, sd1, n1, mean2, sd2, n2,
				events1, total1, events2, total2)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.StudyID, e.OutcomeID, e.Arm1ID, e.Arm2ID, e.EffectType,
			e.Value, e.SE, e.CILower, e.CIUpper, e.Mean1, e.SD1, e.N1, e.Mean2, e.SD2, e.N2,
			e.Events1, e.Total1, e.Events2, e.Total2)
		if err != nil {
			return fmt.Errorf("failed to insert effect: %w", err)
		}
		return nil
	}

	result, err := s.q.Exec(`
		INSERT INTO effects (study_id, outcome_id, arm1_id, arm2_id, effect_type,
			value, se, ci_lower, ci_upper, mean1, sd1, n1, mean2, sd2, n2,
			events1, total1, events2, total2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.StudyID, e.OutcomeID, e.Arm1ID, e.Arm2ID, e.EffectType,
		e.Value, e.SE, e.CILower, e.CIUpper, e.Mean1, e.SD1, e.N1, e.Mean2, e.SD2, e.N2,
		e.Events1, e.Total1, e.Events2, e.Total2)
	if err != nil {
		return fmt.Errorf("failed to insert effect: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get effect ID: %w", err)
	}
	e.ID = id
	return nil
}

// InsertCovariate inserts a covariate, honoring a sheet-provided ID when present
func (s *Store) InsertCovariate(c *Covariate) error {
	if c.ID != 0 {
		_, err := s.q.Exec(`
			INSERT INTO covariates (id, study_id, name, value)
			VALUES (?, ?, ?, ?)
		`, c.ID, c.StudyID, c.Name, c.Value)
		if err != nil {
			return fmt.Errorf("failed to insert covariate: %w", err)
		}
		return nil
	}

	result, err := s.q.Exec(`
		INSERT INTO covariates (study_id, name, value) VALUES (?, ?, ?)
	`, c.StudyID, c.Name, c.Value)
	if err != nil {
		return fmt.Errorf("failed to insert covariate: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get covariate ID: %w", err)
	}
	c.ID = id
	return nil
}

// CountArms returns the number of persisted arms
func (s *Store) CountArms() (int, error) {
	return s.count("SELECT COUNT(*) FROM arms")
}

// CountOutcomes returns the number of persisted outcomes
func (s *Store) CountOutcomes() (int, error) {
	return s.count("SELECT COUNT(*) FROM outcomes")
}

// CountEffects returns the number of persisted effects
func (s *Store) CountEffects() (int, error) {
	return s.count("SELECT COUNT(*) FROM effects")
}

// CountCovariates returns the number of persisted covariates
func (s *Store) CountCovariates() (int, error) {
	return s.count("SELECT COUNT(*) FROM covariates")
}

// DeleteAllArms removes every arm
func (s *Store) DeleteAllArms() error {
	if _, err := s.q.Exec("DELETE FROM arms"); err != nil {
		return fmt.Errorf("failed to delete arms: %w", err)
	}
	return nil
}

// DeleteAllOutcomes removes every outcome
func (s *Store) DeleteAllOutcomes() error {
	if _, err := s.q.Exec("DELETE FROM outcomes"); err != nil {
		return fmt.Errorf("failed to delete outcomes: %w", err)
	}
	return nil
}

// DeleteAllEffects removes every effect
func (s *Store) DeleteAllEffects() error {
	if _, err := s.q.Exec("DELETE FROM effects"); err != nil {
		return fmt.Errorf("failed to delete effects: %w", err)
	}
	return nil
}

// DeleteAllCovariates removes every covariate
func (s *Store) DeleteAllCovariates() error {
	if _, err := s.q.Exec("DELETE FROM covariates"); err != nil {
		return fmt.Errorf("failed to delete covariates: %w", err)
	}
	return nil
}

package store

// Schema v1 - studies, their dependent entities, raw ingested records and
// derived participant groups. Raw records are independent of the derived
// entity graph and survive study deletion; everything owned by a study
// cascades when the study row is removed.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Research studies (one row per publication)
CREATE TABLE IF NOT EXISTS studies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  first_author TEXT,
  year INTEGER,
  country TEXT,
  design TEXT,
  notes TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_studies_title ON studies(title);

-- Participant arms/cohorts within a study
CREATE TABLE IF NOT EXISTS arms (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  study_id INTEGER NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
  label TEXT,
  n INTEGER CHECK (n IS NULL OR n >= 0),
  age_mean REAL,
  age_sd REAL,
  percent_male REAL,
  ethnicity TEXT,
  inflammation_excluded INTEGER,
  cad_excluded INTEGER,
  disease_confirmation TEXT,
  notes TEXT,
  UNIQUE (study_id, label)
);

CREATE INDEX IF NOT EXISTS idx_arms_study ON arms(study_id);

-- Measured variables within a study
CREATE TABLE IF NOT EXISTS outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  study_id INTEGER NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  unit TEXT,
  method TEXT,
  direction TEXT
);

CREATE INDEX IF NOT EXISTS idx_outcomes_key ON outcomes(study_id, name, unit, method);

-- Quantitative effect sizes and arm-level statistics
CREATE TABLE IF NOT EXISTS effects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  study_id INTEGER NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
  outcome_id INTEGER NOT NULL REFERENCES outcomes(id) ON DELETE CASCADE,
  arm1_id INTEGER REFERENCES arms(id) ON DELETE SET NULL,
  arm2_id INTEGER REFERENCES arms(id) ON DELETE SET NULL,
  effect_type TEXT NOT NULL CHECK (effect_type IN ('smd', 'md', 'log_or', 'rr')),
  value REAL,
  se REAL,
  ci_lower REAL,
  ci_upper REAL,
  mean1 REAL,
  sd1 REAL CHECK (sd1 IS NULL OR sd1 >= 0),
  n1 INTEGER CHECK (n1 IS NULL OR n1 >= 0),
  mean2 REAL,
  sd2 REAL CHECK (sd2 IS NULL OR sd2 >= 0),
  n2 INTEGER CHECK (n2 IS NULL OR n2 >= 0),
  events1 INTEGER,
  total1 INTEGER,
  events2 INTEGER,
  total2 INTEGER,
  CHECK (events1 IS NULL OR total1 IS NULL OR events1 <= total1),
  CHECK (events2 IS NULL OR total2 IS NULL OR events2 <= total2)
);

CREATE INDEX IF NOT EXISTS idx_effects_study ON effects(study_id);

-- Simple (study, name, value) associations
CREATE TABLE IF NOT EXISTS covariates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  study_id INTEGER NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  value TEXT
);

CREATE INDEX IF NOT EXISTS idx_covariates_study ON covariates(study_id);

-- Tags are deduplicated globally by name and linked to studies many-to-many
CREATE TABLE IF NOT EXISTS tags (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS study_tags (
  study_id INTEGER NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
  tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  PRIMARY KEY (study_id, tag_id)
);

-- Raw ingested spreadsheet rows (replayable source of truth, JSON payload)
CREATE TABLE IF NOT EXISTS raw_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  data TEXT NOT NULL,
  invalid TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Participant groups derived from raw records
CREATE TABLE IF NOT EXISTS study_groups (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  study_id INTEGER NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
  group_key TEXT NOT NULL,
  n INTEGER,
  attrs TEXT,
  UNIQUE (study_id, group_key)
);

-- Measured biomarker results per derived group
CREATE TABLE IF NOT EXISTS group_outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  group_id INTEGER NOT NULL REFERENCES study_groups(id) ON DELETE CASCADE,
  outcome_id INTEGER NOT NULL REFERENCES outcomes(id) ON DELETE CASCADE,
  value REAL,
  value_type TEXT,
  dispersion REAL,
  dispersion_type TEXT,
  unit TEXT
);

CREATE INDEX IF NOT EXISTS idx_group_outcomes_group ON group_outcomes(group_id);

-- Import run audit trail
CREATE TABLE IF NOT EXISTS import_runs (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  source TEXT,
  state TEXT NOT NULL,
  objects INTEGER DEFAULT 0,
  errors INTEGER DEFAULT 0,
  report_path TEXT,
  started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  finished_at DATETIME
);
`

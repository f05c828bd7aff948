package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strptr(s string) *string { return &s }

func intptr(n int64) *int64 { return &n }

func floatptr(f float64) *float64 { return &f }

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{
		"studies", "arms", "outcomes", "effects", "covariates",
		"tags", "study_tags", "raw_records", "study_groups",
		"group_outcomes", "import_runs", "schema_version",
	}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestStudyInsertAndLookup(t *testing.T) {
	s := openTestStore(t)

	st := &Study{Title: "M00022", FirstAuthor: strptr("Bielecka-Dabrowa"), Year: intptr(2013)}
	if err := s.InsertStudy(st); err != nil {
		t.Fatalf("failed to insert study: %v", err)
	}
	if st.ID == 0 {
		t.Fatalf("expected generated ID")
	}

	got, err := s.GetStudyByTitle("M00022")
	if err != nil {
		t.Fatalf("failed to look up study: %v", err)
	}
	if got == nil || got.ID != st.ID {
		t.Errorf("expected to find inserted study, got %+v", got)
	}
	if got.Year == nil || *got.Year != 2013 {
		t.Errorf("expected year 2013, got %v", got.Year)
	}

	missing, err := s.GetStudyByTitle("nope")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing study")
	}
}

func TestStudyExplicitID(t *testing.T) {
	s := openTestStore(t)

	st := &Study{ID: 42, Title: "Explicit"}
	if err := s.InsertStudy(st); err != nil {
		t.Fatalf("failed to insert study with explicit ID: %v", err)
	}

	got, err := s.GetStudyByID(42)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil || got.Title != "Explicit" {
		t.Errorf("expected study with ID 42, got %+v", got)
	}
}

func TestCascadeDelete(t *testing.T) {
	s := openTestStore(t)

	st := &Study{Title: "Cascade"}
	if err := s.InsertStudy(st); err != nil {
		t.Fatalf("failed to insert study: %v", err)
	}
	if err := s.InsertArm(&Arm{StudyID: st.ID, Label: strptr("Control"), N: intptr(10)}); err != nil {
		t.Fatalf("failed to insert arm: %v", err)
	}
	out := &Outcome{StudyID: st.ID, Name: "IL6", Unit: strptr("pg/mL")}
	if err := s.InsertOutcome(out); err != nil {
		t.Fatalf("failed to insert outcome: %v", err)
	}
	g := &StudyGroup{StudyID: st.ID, GroupKey: "k", Attrs: map[string]interface{}{"n": 10}}
	if err := s.InsertStudyGroup(g); err != nil {
		t.Fatalf("failed to insert group: %v", err)
	}
	if err := s.InsertGroupOutcome(&GroupOutcome{GroupID: g.ID, OutcomeID: out.ID, ValueType: "mean"}); err != nil {
		t.Fatalf("failed to insert group outcome: %v", err)
	}

	if err := s.DeleteAllStudies(); err != nil {
		t.Fatalf("failed to delete studies: %v", err)
	}

	for name, count := range map[string]func() (int, error){
		"arms":           s.CountArms,
		"outcomes":       s.CountOutcomes,
		"study_groups":   s.CountStudyGroups,
		"group_outcomes": s.CountGroupOutcomes,
	} {
		n, err := count()
		if err != nil {
			t.Fatalf("failed to count %s: %v", name, err)
		}
		if n != 0 {
			t.Errorf("expected %s to cascade on study delete, got %d rows", name, n)
		}
	}
}

func TestTagDedupAndLink(t *testing.T) {
	s := openTestStore(t)

	st := &Study{Title: "Tagged"}
	if err := s.InsertStudy(st); err != nil {
		t.Fatalf("failed to insert study: %v", err)
	}

	tag := &Tag{Name: "cytokine"}
	if err := s.InsertTag(tag); err != nil {
		t.Fatalf("failed to insert tag: %v", err)
	}

	// Unique name constraint
	if err := s.InsertTag(&Tag{Name: "cytokine"}); err == nil {
		t.Errorf("expected duplicate tag name to fail")
	}

	if err := s.LinkStudyTag(st.ID, tag.ID); err != nil {
		t.Fatalf("failed to link tag: %v", err)
	}
	if err := s.LinkStudyTag(st.ID, tag.ID); err != nil {
		t.Fatalf("expected duplicate link to be a no-op, got %v", err)
	}

	tags, err := s.GetStudyTags(st.ID)
	if err != nil {
		t.Fatalf("failed to get study tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "cytokine" {
		t.Errorf("expected one linked tag, got %+v", tags)
	}
}

func TestRawRecordRoundTrip(t *testing.T) {
	s := openTestStore(t)

	r := &RawRecord{
		Data: map[string]interface{}{
			"ID":   "M00022",
			"Year": float64(2013),
			"n":    float64(30),
		},
		Invalid: []string{"cMRI performed"},
	}
	if err := s.InsertRawRecord(r); err != nil {
		t.Fatalf("failed to insert raw record: %v", err)
	}

	records, err := s.ListRawRecords()
	if err != nil {
		t.Fatalf("failed to list raw records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Data["ID"] != "M00022" {
		t.Errorf("expected ID M00022, got %v", got.Data["ID"])
	}
	if got.Data["Year"] != float64(2013) {
		t.Errorf("expected Year 2013, got %v", got.Data["Year"])
	}
	if len(got.Invalid) != 1 || got.Invalid[0] != "cMRI performed" {
		t.Errorf("expected invalid marker to round-trip, got %v", got.Invalid)
	}
}

func TestTransactionRollback(t *testing.T) {
	s := openTestStore(t)

	sentinel := errors.New("boom")
	err := s.Transaction(func(tx *Store) error {
		if err := tx.InsertStudy(&Study{Title: "Doomed"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	n, err := s.CountStudies()
	if err != nil {
		t.Fatalf("failed to count studies: %v", err)
	}
	if n != 0 {
		t.Errorf("expected rollback to discard inserts, got %d studies", n)
	}
}

func TestEffectConstraints(t *testing.T) {
	s := openTestStore(t)

	st := &Study{Title: "Effects"}
	if err := s.InsertStudy(st); err != nil {
		t.Fatalf("failed to insert study: %v", err)
	}
	out := &Outcome{StudyID: st.ID, Name: "Mortality"}
	if err := s.InsertOutcome(out); err != nil {
		t.Fatalf("failed to insert outcome: %v", err)
	}

	ok := &Effect{StudyID: st.ID, OutcomeID: out.ID, EffectType: EffectSMD, Value: floatptr(0.3)}
	if err := s.InsertEffect(ok); err != nil {
		t.Fatalf("failed to insert valid effect: %v", err)
	}

	bad := &Effect{StudyID: st.ID, OutcomeID: out.ID, EffectType: "banana"}
	if err := s.InsertEffect(bad); err == nil {
		t.Errorf("expected unknown effect type to be rejected")
	}

	overflow := &Effect{
		StudyID: st.ID, OutcomeID: out.ID, EffectType: EffectRR,
		Events1: intptr(20), Total1: intptr(10),
	}
	if err := s.InsertEffect(overflow); err == nil {
		t.Errorf("expected events > total to be rejected")
	}
}

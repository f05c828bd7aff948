package importer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/plew99/cytokines-metaanalysis/internal/sheet"
	"github.com/plew99/cytokines-metaanalysis/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestImporter(t *testing.T, st *store.Store, dryRun, replace bool) *Importer {
	t.Helper()
	return New(&Config{
		Store:      st,
		ReportsDir: t.TempDir(),
		DryRun:     dryRun,
		Replace:    replace,
	})
}

// row builds a test row from col/value string pairs
func row(pairs ...string) *sheet.Row {
	r := sheet.NewRow()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], sheet.String(pairs[i+1]))
	}
	return r
}

func typedFrames() Frames {
	return Frames{
		"Study": {
			row("id", "1", "title", "M00022", "first_author", "Nowak", "year", "2013"),
			row("id", "2", "title", "M00035", "year", "2019"),
		},
		"Arms": {
			row("id", "1", "study_id", "1", "label", "DCM", "n", "30"),
			row("id", "2", "study_id", "1", "label", "Control", "n", "15"),
		},
		"Outcomes": {
			row("id", "1", "study_id", "1", "name", "IL6", "unit", "pg/mL"),
		},
		"Tags": {
			row("study_id", "1", "name", "cardiomyopathy"),
			row("study_id", "2", "name", "cardiomyopathy"),
		},
	}
}

func TestRunCommitsTypedBatch(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	result, err := imp.Run("test", typedFrames())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.Committed() {
		t.Fatalf("expected committed run, got state %q", result.State)
	}
	if result.Objects != 6 {
		t.Errorf("expected 6 objects (2 studies, 2 arms, 1 outcome, 1 tag), got %d", result.Objects)
	}

	if n, _ := st.CountStudies(); n != 2 {
		t.Errorf("expected 2 studies, got %d", n)
	}
	if n, _ := st.CountArms(); n != 2 {
		t.Errorf("expected 2 arms, got %d", n)
	}

	// Both tag rows name the same tag; it is created once and linked twice
	if n, _ := st.CountTags(); n != 1 {
		t.Errorf("expected 1 deduplicated tag, got %d", n)
	}
	tags, err := st.GetStudyTags(2)
	if err != nil {
		t.Fatalf("failed to get study tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "cardiomyopathy" {
		t.Errorf("expected study 2 linked to tag cardiomyopathy, got %v", tags)
	}
}

func TestRunRollsBackWholeBatchOnAnyError(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	frames := typedFrames()
	// One Outcomes row missing its required name taints the entire batch
	frames["Outcomes"] = append(frames["Outcomes"],
		row("id", "2", "study_id", "1"))

	result, err := imp.Run("test", frames)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Committed() {
		t.Fatal("expected rollback, run committed")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(result.Errors), result.Errors)
	}
	e := result.Errors[0]
	if e.Sheet != "Outcomes" || e.Column != "name" || e.Record != "2" {
		t.Errorf("unexpected error row: %+v", e)
	}

	// Clean sheets must not survive a failing sibling
	if n, _ := st.CountStudies(); n != 0 {
		t.Errorf("expected 0 studies after rollback, got %d", n)
	}
	if n, _ := st.CountTags(); n != 0 {
		t.Errorf("expected 0 tags after rollback, got %d", n)
	}
}

func TestRunCollectsErrorsAcrossSheets(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	frames := typedFrames()
	frames["Arms"] = append(frames["Arms"], row("id", "9")) // missing study_id
	frames["Outcomes"] = append(frames["Outcomes"],
		row("id", "2", "study_id", "1")) // missing name

	result, err := imp.Run("test", frames)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Committed() {
		t.Fatal("expected rollback")
	}

	// One failing sheet does not stop later sheets from being checked; the
	// operator gets every problem in a single report
	sheets := map[string]bool{}
	for _, e := range result.Errors {
		sheets[e.Sheet] = true
	}
	if !sheets["Arms"] || !sheets["Outcomes"] {
		t.Errorf("expected errors from both Arms and Outcomes, got %v", result.Errors)
	}
}

func TestRunWritesErrorReport(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	frames := Frames{
		"Study": {row("id", "1")}, // missing title
	}
	result, err := imp.Run("test", frames)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.ReportPath == "" {
		t.Fatal("expected a report path")
	}

	f, err := os.Open(result.ReportPath)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus 1 row, got %d rows", len(records))
	}
	got := records[1]
	if got[0] != "1" || got[1] != "missing required field" || got[2] != "Study" || got[3] != "title" {
		t.Errorf("unexpected report row: %v", got)
	}
}

func TestRunDryRunPersistsNothing(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, true, false)

	result, err := imp.Run("test", typedFrames())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Committed() {
		t.Fatal("dry run must not commit")
	}
	if result.Objects == 0 {
		t.Error("dry run should still report the objects it would create")
	}
	if n, _ := st.CountStudies(); n != 0 {
		t.Errorf("expected 0 studies after dry run, got %d", n)
	}
}

func TestRunReplaceSwapsBatch(t *testing.T) {
	st := openTestStore(t)

	if _, err := newTestImporter(t, st, false, false).Run("first", typedFrames()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	frames := Frames{
		"Study": {row("id", "9", "title", "M00099")},
	}
	result, err := newTestImporter(t, st, false, true).Run("second", frames)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !result.Committed() {
		t.Fatalf("expected committed run, got %q", result.State)
	}

	studies, err := st.ListStudies()
	if err != nil {
		t.Fatalf("failed to list studies: %v", err)
	}
	if len(studies) != 1 || studies[0].Title != "M00099" {
		t.Errorf("expected only the replacement study, got %v", studies)
	}
	if n, _ := st.CountArms(); n != 0 {
		t.Errorf("expected replaced arms gone, got %d", n)
	}
}

func TestRunReplaceKeepsDataWhenBatchFails(t *testing.T) {
	st := openTestStore(t)

	if _, err := newTestImporter(t, st, false, false).Run("first", typedFrames()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	frames := Frames{
		"Study": {row("id", "9")}, // missing title
	}
	result, err := newTestImporter(t, st, false, true).Run("second", frames)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.Committed() {
		t.Fatal("expected rollback")
	}

	// The failed replacement must not have deleted anything
	if n, _ := st.CountStudies(); n != 2 {
		t.Errorf("expected original 2 studies intact, got %d", n)
	}
}

func TestRunEmptyFramesRollsBack(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	result, err := imp.Run("test", Frames{"Study": nil})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Committed() {
		t.Fatal("expected rollback for empty input")
	}
}

func TestRunRecordsAuditRow(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	result, err := imp.Run("workbook.xlsx", typedFrames())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	runs, err := st.ListImportRuns(10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != result.RunID || r.State != store.RunCommitted || r.Objects != result.Objects {
		t.Errorf("unexpected audit row: %+v", r)
	}
	if r.Source != "workbook.xlsx" {
		t.Errorf("expected source recorded, got %q", r.Source)
	}
}

func TestBuildSheetRejectsUnknownEffectType(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	frames := typedFrames()
	frames["Effects"] = []*sheet.Row{
		row("id", "1", "study_id", "1", "outcome_id", "1", "effect_type", "hazard"),
	}
	result, err := imp.Run("test", frames)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Committed() {
		t.Fatal("expected rollback for unknown effect type")
	}
	found := false
	for _, e := range result.Errors {
		if e.Sheet == "Effects" && e.Column == "effect_type" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an effect_type error, got %v", result.Errors)
	}
}

func TestBuildTagReportsMissingStudy(t *testing.T) {
	st := openTestStore(t)
	imp := newTestImporter(t, st, false, false)

	frames := Frames{
		"Tags": {row("study_id", "77", "name", "orphan")},
	}
	result, err := imp.Run("test", frames)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Committed() {
		t.Fatal("expected rollback")
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != "study not found" {
		t.Errorf("expected a study-not-found error, got %v", result.Errors)
	}
}

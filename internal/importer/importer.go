package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/plew99/cytokines-metaanalysis/internal/report"
	"github.com/plew99/cytokines-metaanalysis/internal/sheet"
	"github.com/plew99/cytokines-metaanalysis/internal/store"
	"github.com/plew99/cytokines-metaanalysis/internal/util"
	"github.com/plew99/cytokines-metaanalysis/internal/validate"
	"github.com/schollz/progressbar/v3"
)

// State names the orchestrator's pipeline stages
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateValidating  State = "validating"
	StateBuilding    State = "building"
	StateCommitting  State = "committing"
	StateRollingBack State = "rolling_back"
	StateDone        State = "done"
)

// Importer drives an import run over one or more sheets. The pipeline is
// single-threaded and batch-oriented: the whole run either commits in one
// transaction or leaves the store untouched.
type Importer struct {
	store          *store.Store
	logger         *report.EventLogger
	reportsDir     string
	defaultOutcome string
	dryRun         bool
	replace        bool

	runID string
	state State
}

// Config holds importer configuration
type Config struct {
	Store          *store.Store
	Logger         *report.EventLogger
	ReportsDir     string
	DefaultOutcome string // outcome name for raw records without a Cytokine column
	DryRun         bool
	Replace        bool
}

// New creates a new Importer
func New(cfg *Config) *Importer {
	logger := cfg.Logger
	if logger == nil {
		logger = report.NullLogger()
	}
	reportsDir := cfg.ReportsDir
	if reportsDir == "" {
		reportsDir = "reports"
	}
	defaultOutcome := cfg.DefaultOutcome
	if defaultOutcome == "" {
		defaultOutcome = "IL6"
	}
	return &Importer{
		store:          cfg.Store,
		logger:         logger,
		reportsDir:     reportsDir,
		defaultOutcome: defaultOutcome,
		dryRun:         cfg.DryRun,
		replace:        cfg.Replace,
		runID:          uuid.NewString(),
		state:          StateIdle,
	}
}

// RunID returns this run's identifier
func (imp *Importer) RunID() string {
	return imp.runID
}

func (imp *Importer) setState(s State) {
	imp.state = s
	util.DebugLog("state: %s -> run %s", s, imp.runID)
}

// Result summarizes a finished import run
type Result struct {
	RunID      string
	State      string // store.RunCommitted or store.RunRolledBack
	Objects    int
	Errors     []report.RowError
	ReportPath string
}

// Committed reports whether the run persisted its entities
func (r *Result) Committed() bool {
	return r.State == store.RunCommitted
}

// ImportWorkbook imports an XLSX workbook. Workbooks with the per-entity
// sheet layout go through the typed pipeline; a workbook whose only
// recognized sheet is the flat biomarker sheet is ingested as raw records.
func (imp *Importer) ImportWorkbook(path string) (*Result, error) {
	imp.setState(StateLoading)

	if fi, err := os.Stat(path); err == nil {
		util.InfoLog("Source: %s (%s)", path, humanize.Bytes(uint64(fi.Size())))
	}

	wb, err := sheet.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	util.InfoLog("Workbook contains sheets: %v", wb.SheetNames())

	// The flat biomarker layout applies only when none of the typed sheets
	// are present alongside it
	typedPresent := false
	for _, spec := range SheetOrder {
		if _, ok := wb.Lookup(spec.Name); ok {
			typedPresent = true
			break
		}
	}
	if rawName, ok := wb.Lookup(RawSheetName); ok && !typedPresent {
		rows, err := wb.Rows(rawName)
		if err != nil {
			return nil, err
		}
		util.InfoLog("Loaded sheet '%s' with %d rows", rawName, len(rows))
		imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventLoad,
			RunID: imp.runID, Source: path, Sheet: rawName, Rows: len(rows)})
		return imp.RunRaw(path, rows)
	}

	frames := Frames{}
	for _, spec := range SheetOrder {
		name, ok := wb.Lookup(spec.Name)
		if !ok {
			util.WarnLog("Expected sheet '%s' not found in workbook", spec.Name)
			continue
		}
		rows, err := wb.Rows(name)
		if err != nil {
			return nil, err
		}
		frames[spec.Name] = rows
		util.InfoLog("Loaded sheet '%s' as '%s' with %d rows", name, spec.Name, len(rows))
		imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventLoad,
			RunID: imp.runID, Source: path, Sheet: spec.Name, Rows: len(rows)})
	}

	if len(frames) == 0 {
		util.ErrorLog("No recognized sheets found. Expected one of: %s", sheetNames())
		imp.logger.Log(&report.Event{Level: report.LevelError, Event: report.EventError,
			RunID: imp.runID, Source: path, Reason: "no recognized sheets"})
		return imp.finish(path, "workbook", &Result{RunID: imp.runID, State: store.RunRolledBack}), nil
	}

	return imp.Run(path, frames)
}

// ImportCSVFolder imports a directory of per-entity CSV files. Missing
// files are skipped with a diagnostic, matching missing workbook sheets.
func (imp *Importer) ImportCSVFolder(dir string) (*Result, error) {
	imp.setState(StateLoading)

	frames := Frames{}
	for _, spec := range SheetOrder {
		path := filepath.Join(dir, spec.Name+".csv")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			util.WarnLog("Expected file '%s.csv' not found in folder", spec.Name)
			continue
		}
		rows, err := sheet.ReadCSV(path)
		if err != nil {
			return nil, err
		}
		frames[spec.Name] = rows
		util.InfoLog("Loaded '%s.csv' with %d rows", spec.Name, len(rows))
		imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventLoad,
			RunID: imp.runID, Source: path, Sheet: spec.Name, Rows: len(rows)})
	}

	if len(frames) == 0 {
		util.ErrorLog("No recognized CSV files found. Expected one of: %s", sheetNames())
		return imp.finish(dir, "csv", &Result{RunID: imp.runID, State: store.RunRolledBack}), nil
	}

	return imp.Run(dir, frames)
}

// Run drives the typed multi-sheet pipeline over pre-loaded frames.
//
// All validation errors across all sheets are collected before the
// pass/fail decision: a single failing row anywhere rolls back the entire
// batch, even if other sheets were clean, and the full error list lands in
// one report for the operator.
func (imp *Importer) Run(source string, frames Frames) (*Result, error) {
	imp.setState(StateValidating)

	b := newBatch()
	var errs []report.RowError

	for _, spec := range SheetOrder {
		rows, ok := frames[spec.Name]
		if !ok {
			util.InfoLog("Skipping missing sheet: %s", spec.Name)
			continue
		}
		util.InfoLog("Processing sheet '%s' (%d rows)", spec.Name, len(rows))

		var valid []*sheet.Row
		var sheetErrs []report.RowError
		for i, row := range rows {
			rowErrs := validate.Row(row, spec.Required)
			if len(rowErrs) > 0 {
				for _, fieldErr := range rowErrs {
					sheetErrs = append(sheetErrs, rowError(row, i, spec.Name, fieldErr.Field, fieldErr.Message))
				}
				continue
			}
			valid = append(valid, row)
		}

		util.InfoLog(" -> %d valid rows, %d errors", len(valid), len(sheetErrs))
		imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventValidate,
			RunID: imp.runID, Sheet: spec.Name, Rows: len(valid), Errors: len(sheetErrs)})

		errs = append(errs, sheetErrs...)
		if len(sheetErrs) > 0 {
			// The sheet is dropped entirely, but later sheets still get
			// processed so their errors reach the same report
			continue
		}

		imp.setState(StateBuilding)
		buildErrs := imp.buildSheet(b, spec, valid)
		if len(buildErrs) > 0 {
			imp.logger.Log(&report.Event{Level: report.LevelWarning, Event: report.EventBuild,
				RunID: imp.runID, Sheet: spec.Name, Errors: len(buildErrs)})
			errs = append(errs, buildErrs...)
		}
	}

	result := &Result{RunID: imp.runID, Errors: errs}

	if len(errs) > 0 {
		imp.setState(StateRollingBack)
		path, err := report.WriteErrorReport(imp.reportsDir, errs)
		if err != nil {
			util.ErrorLog("Failed to write error report: %v", err)
		} else {
			result.ReportPath = path
			imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventReport,
				RunID: imp.runID, Source: path, Errors: len(errs)})
		}
		util.ErrorLog("%d validation errors found. Report saved to %s", len(errs), result.ReportPath)
		result.State = store.RunRolledBack
		return imp.finish(source, "typed", result), nil
	}

	if b.objects() == 0 {
		imp.setState(StateRollingBack)
		util.WarnLog("No data found to import. Check sheet names and required fields.")
		result.State = store.RunRolledBack
		return imp.finish(source, "typed", result), nil
	}

	if imp.dryRun {
		imp.setState(StateRollingBack)
		util.SuccessLog("Dry run successful. No data committed.")
		result.State = store.RunRolledBack
		result.Objects = b.objects()
		return imp.finish(source, "typed", result), nil
	}

	imp.setState(StateCommitting)
	if err := imp.commit(b); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}

	result.State = store.RunCommitted
	result.Objects = b.objects()
	util.SuccessLog("Import completed successfully. Imported %s objects.",
		humanize.Comma(int64(result.Objects)))
	imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventCommit,
		RunID: imp.runID, Objects: result.Objects})
	return imp.finish(source, "typed", result), nil
}

// commit persists the whole batch in one transaction. With replace set,
// previously persisted entities are deleted first inside the same
// transaction (dependents before parents), so a failing import can never
// destroy existing data.
func (imp *Importer) commit(b *batch) error {
	return imp.store.Transaction(func(tx *store.Store) error {
		if imp.replace {
			for _, clear := range []func() error{
				tx.DeleteAllTags,
				tx.DeleteAllCovariates,
				tx.DeleteAllEffects,
				tx.DeleteAllOutcomes,
				tx.DeleteAllArms,
				tx.DeleteAllStudies,
			} {
				if err := clear(); err != nil {
					return err
				}
			}
		}
		for _, st := range b.studies {
			if err := tx.InsertStudy(st); err != nil {
				return err
			}
		}
		for _, a := range b.arms {
			if err := tx.InsertArm(a); err != nil {
				return err
			}
		}
		for _, o := range b.outcomes {
			if err := tx.InsertOutcome(o); err != nil {
				return err
			}
		}
		for _, e := range b.effects {
			if err := tx.InsertEffect(e); err != nil {
				return err
			}
		}
		for _, c := range b.covariates {
			if err := tx.InsertCovariate(c); err != nil {
				return err
			}
		}
		for _, t := range b.newTags {
			if err := tx.InsertTag(t); err != nil {
				return err
			}
		}
		for _, link := range b.tagLinks {
			if err := tx.LinkStudyTag(link.StudyID, link.Tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunRaw ingests flat-sheet rows as raw records. This path is lenient:
// type-coercion failures flag fields instead of failing rows, and
// validation in the typed sense does not apply.
func (imp *Importer) RunRaw(source string, rows []*sheet.Row) (*Result, error) {
	imp.setState(StateBuilding)

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && len(rows) > 1 {
		bar = progressbar.NewOptions(len(rows),
			progressbar.OptionSetDescription("Ingesting rows"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	records := make([]*store.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, buildRawRecord(row))
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	invalidFields := 0
	for _, rec := range records {
		invalidFields += len(rec.Invalid)
	}
	if invalidFields > 0 {
		util.WarnLog("%d field(s) failed type coercion and were preserved as text", invalidFields)
	}

	result := &Result{RunID: imp.runID}

	if len(records) == 0 {
		imp.setState(StateRollingBack)
		util.WarnLog("No data found to import. The sheet is empty.")
		result.State = store.RunRolledBack
		return imp.finish(source, "raw", result), nil
	}

	if imp.dryRun {
		imp.setState(StateRollingBack)
		util.SuccessLog("Dry run complete. No data persisted.")
		result.State = store.RunRolledBack
		result.Objects = len(records)
		return imp.finish(source, "raw", result), nil
	}

	imp.setState(StateCommitting)
	err := imp.store.Transaction(func(tx *store.Store) error {
		if imp.replace {
			if err := tx.DeleteAllRawRecords(); err != nil {
				return err
			}
		}
		for _, rec := range records {
			if err := tx.InsertRawRecord(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}

	result.State = store.RunCommitted
	result.Objects = len(records)
	util.SuccessLog("Import completed successfully. Imported %d objects.", result.Objects)
	imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventCommit,
		RunID: imp.runID, Objects: result.Objects})
	return imp.finish(source, "raw", result), nil
}

// finish records the audit row and settles the terminal state. The audit
// write is outside the entity transaction so rolled-back runs still leave
// a trace.
func (imp *Importer) finish(source, kind string, result *Result) *Result {
	if result.State == store.RunRolledBack {
		imp.logger.Log(&report.Event{Level: report.LevelInfo, Event: report.EventRollback,
			RunID: imp.runID, Errors: len(result.Errors)})
	}
	err := imp.store.RecordImportRun(&store.ImportRun{
		ID:         imp.runID,
		Kind:       kind,
		Source:     source,
		State:      result.State,
		Objects:    result.Objects,
		Errors:     len(result.Errors),
		ReportPath: result.ReportPath,
		StartedAt:  time.Now(),
	})
	if err != nil {
		util.WarnLog("Failed to record import run: %v", err)
	}
	imp.setState(StateDone)
	return result
}

package importer

import (
	"fmt"
	"strconv"

	"github.com/plew99/cytokines-metaanalysis/internal/coerce"
	"github.com/plew99/cytokines-metaanalysis/internal/report"
	"github.com/plew99/cytokines-metaanalysis/internal/sheet"
	"github.com/plew99/cytokines-metaanalysis/internal/store"
)

// tagLink is a pending study-tag association; Tag may be a freshly built
// tag whose ID is assigned at commit time
type tagLink struct {
	StudyID int64
	Tag     *store.Tag
}

// batch accumulates entities built from validated rows before the single
// commit transaction. Entities created by earlier sheets are reachable for
// later sheets through the id cache.
type batch struct {
	studies    []*store.Study
	arms       []*store.Arm
	outcomes   []*store.Outcome
	effects    []*store.Effect
	covariates []*store.Covariate
	newTags    []*store.Tag
	tagLinks   []tagLink

	// cache maps sheet-provided ids to built entities, per kind
	cache map[Kind]map[int64]interface{}
	// tagsByName dedupes tags created within this batch
	tagsByName map[string]*store.Tag
}

func newBatch() *batch {
	return &batch{
		cache:      make(map[Kind]map[int64]interface{}),
		tagsByName: make(map[string]*store.Tag),
	}
}

// objects returns the number of entities this batch will create
func (b *batch) objects() int {
	return len(b.studies) + len(b.arms) + len(b.outcomes) +
		len(b.effects) + len(b.covariates) + len(b.newTags)
}

func (b *batch) remember(kind Kind, id int64, entity interface{}) {
	if b.cache[kind] == nil {
		b.cache[kind] = make(map[int64]interface{})
	}
	b.cache[kind][id] = entity
}

func (b *batch) lookup(kind Kind, id int64) interface{} {
	return b.cache[kind][id]
}

// recordID returns the identifier used for a row in error reports: the
// sheet's id column when present, the zero-based row index otherwise
func recordID(row *sheet.Row, idx int) string {
	if v := row.Get("id"); !v.IsNull() {
		return v.Raw()
	}
	return strconv.Itoa(idx)
}

// rowError builds one report entry for a row-level failure
func rowError(row *sheet.Row, idx int, sheetName, column, msg string) report.RowError {
	return report.RowError{
		Record:  recordID(row, idx),
		Message: msg,
		Sheet:   sheetName,
		Column:  column,
	}
}

// Typed field accessors. The multi-sheet path is strict: a non-blank value
// that does not coerce to the declared type is a row error, unlike the
// lenient preserve-and-flag policy of the raw sheet.

type fieldErrors struct {
	row   *sheet.Row
	idx   int
	sheet string
	errs  []report.RowError
}

func (fe *fieldErrors) add(column, msg string) {
	fe.errs = append(fe.errs, rowError(fe.row, fe.idx, fe.sheet, column, msg))
}

func (fe *fieldErrors) str(col string) *string {
	v := fe.row.Get(col)
	if v.IsNull() {
		return nil
	}
	s := v.Raw()
	return &s
}

func (fe *fieldErrors) reqStr(col string) string {
	v := fe.row.Get(col)
	return v.Raw()
}

func (fe *fieldErrors) intval(col string) *int64 {
	v := fe.row.Get(col)
	if v.IsNull() {
		return nil
	}
	n, ok := coerce.ParseInt(v.Any())
	if !ok {
		fe.add(col, fmt.Sprintf("invalid integer value %q", v.Raw()))
		return nil
	}
	return &n
}

func (fe *fieldErrors) reqInt(col string) int64 {
	n := fe.intval(col)
	if n == nil {
		return 0
	}
	return *n
}

func (fe *fieldErrors) floatval(col string) *float64 {
	v := fe.row.Get(col)
	if v.IsNull() {
		return nil
	}
	f, ok := coerce.ParseFloat(v.Any(), coerce.TakeFirst)
	if !ok {
		fe.add(col, fmt.Sprintf("invalid numeric value %q", v.Raw()))
		return nil
	}
	return &f
}

func (fe *fieldErrors) boolval(col string) *bool {
	v := fe.row.Get(col)
	if v.IsNull() {
		return nil
	}
	b, ok := coerce.ParseBool(v.Any())
	if !ok {
		fe.add(col, fmt.Sprintf("invalid boolean value %q", v.Raw()))
		return nil
	}
	return &b
}

// buildSheet maps the validated rows of one sheet into batch entities.
// Returned errors are accumulated by the orchestrator; a "study not found"
// error skips its row only, it does not abort the batch by itself.
func (imp *Importer) buildSheet(b *batch, spec SheetSpec, rows []*sheet.Row) []report.RowError {
	var errs []report.RowError
	for i, row := range rows {
		fe := &fieldErrors{row: row, idx: i, sheet: spec.Name}
		switch spec.Kind {
		case KindStudy:
			st := &store.Study{
				ID:          fe.reqInt("id"),
				Title:       fe.reqStr("title"),
				FirstAuthor: fe.str("first_author"),
				Year:        fe.intval("year"),
				Country:     fe.str("country"),
				Design:      fe.str("design"),
				Notes:       fe.str("notes"),
			}
			if len(fe.errs) == 0 {
				b.studies = append(b.studies, st)
				if st.ID != 0 {
					b.remember(KindStudy, st.ID, st)
				}
			}

		case KindArm:
			a := &store.Arm{
				ID:                   fe.reqInt("id"),
				StudyID:              fe.reqInt("study_id"),
				Label:                fe.str("label"),
				N:                    fe.intval("n"),
				AgeMean:              fe.floatval("age_mean"),
				AgeSD:                fe.floatval("age_sd"),
				PercentMale:          fe.floatval("percent_male"),
				Ethnicity:            fe.str("ethnicity"),
				InflammationExcluded: fe.boolval("inflammation_excluded"),
				CADExcluded:          fe.boolval("cad_excluded"),
				DiseaseConfirmation:  fe.str("disease_confirmation"),
				Notes:                fe.str("notes"),
			}
			if a.N != nil && *a.N < 0 {
				fe.add("n", "sample size must be non-negative")
			}
			if len(fe.errs) == 0 {
				b.arms = append(b.arms, a)
				if a.ID != 0 {
					b.remember(KindArm, a.ID, a)
				}
			}

		case KindOutcome:
			o := &store.Outcome{
				ID:        fe.reqInt("id"),
				StudyID:   fe.reqInt("study_id"),
				Name:      fe.reqStr("name"),
				Unit:      fe.str("unit"),
				Method:    fe.str("method"),
				Direction: fe.str("direction"),
			}
			if len(fe.errs) == 0 {
				b.outcomes = append(b.outcomes, o)
				if o.ID != 0 {
					b.remember(KindOutcome, o.ID, o)
				}
			}

		case KindEffect:
			e := &store.Effect{
				ID:         fe.reqInt("id"),
				StudyID:    fe.reqInt("study_id"),
				OutcomeID:  fe.reqInt("outcome_id"),
				Arm1ID:     fe.intval("arm1_id"),
				Arm2ID:     fe.intval("arm2_id"),
				EffectType: fe.reqStr("effect_type"),
				Value:      fe.floatval("value"),
				SE:         fe.floatval("se"),
				CILower:    fe.floatval("ci_lower"),
				CIUpper:    fe.floatval("ci_upper"),
				Mean1:      fe.floatval("mean1"),
				SD1:        fe.floatval("sd1"),
				N1:         fe.intval("n1"),
				Mean2:      fe.floatval("mean2"),
				SD2:        fe.floatval("sd2"),
				N2:         fe.intval("n2"),
				Events1:    fe.intval("events1"),
				Total1:     fe.intval("total1"),
				Events2:    fe.intval("events2"),
				Total2:     fe.intval("total2"),
			}
			checkEffect(fe, e)
			if len(fe.errs) == 0 {
				b.effects = append(b.effects, e)
				if e.ID != 0 {
					b.remember(KindEffect, e.ID, e)
				}
			}

		case KindCovariate:
			c := &store.Covariate{
				ID:      fe.reqInt("id"),
				StudyID: fe.reqInt("study_id"),
				Name:    fe.reqStr("name"),
				Value:   fe.str("value"),
			}
			if len(fe.errs) == 0 {
				b.covariates = append(b.covariates, c)
				if c.ID != 0 {
					b.remember(KindCovariate, c.ID, c)
				}
			}

		case KindTag:
			imp.buildTag(b, fe)
		}
		errs = append(errs, fe.errs...)
	}
	return errs
}

// checkEffect enforces the effect invariants: valid type, non-negative
// sample sizes and dispersions, events bounded by totals
func checkEffect(fe *fieldErrors, e *store.Effect) {
	if e.EffectType != "" && !store.ValidEffectType(e.EffectType) {
		fe.add("effect_type", fmt.Sprintf("unknown effect type %q", e.EffectType))
	}
	for col, n := range map[string]*int64{"n1": e.N1, "n2": e.N2} {
		if n != nil && *n < 0 {
			fe.add(col, "sample size must be non-negative")
		}
	}
	for col, sd := range map[string]*float64{"sd1": e.SD1, "sd2": e.SD2} {
		if sd != nil && *sd < 0 {
			fe.add(col, "standard deviation must be non-negative")
		}
	}
	if e.Events1 != nil && e.Total1 != nil && *e.Events1 > *e.Total1 {
		fe.add("events1", "events exceed total")
	}
	if e.Events2 != nil && e.Total2 != nil && *e.Events2 > *e.Total2 {
		fe.add("events2", "events exceed total")
	}
}

// buildTag resolves the parent study (in-batch cache first, then the
// persisted store), dedupes the tag by name and queues the link
func (imp *Importer) buildTag(b *batch, fe *fieldErrors) {
	studyID := fe.reqInt("study_id")
	if len(fe.errs) > 0 {
		return
	}

	var parentID int64
	if st, ok := b.lookup(KindStudy, studyID).(*store.Study); ok && st != nil {
		parentID = st.ID
	} else {
		persisted, err := imp.store.GetStudyByID(studyID)
		if err != nil {
			fe.add("study_id", fmt.Sprintf("study lookup failed: %v", err))
			return
		}
		if persisted == nil {
			fe.add("study_id", "study not found")
			return
		}
		parentID = persisted.ID
	}

	name := fe.reqStr("name")
	tag := b.tagsByName[name]
	if tag == nil {
		persisted, err := imp.store.GetTagByName(name)
		if err != nil {
			fe.add("name", fmt.Sprintf("tag lookup failed: %v", err))
			return
		}
		if persisted != nil {
			tag = persisted
		} else {
			tag = &store.Tag{Name: name}
			b.newTags = append(b.newTags, tag)
		}
		b.tagsByName[name] = tag
	}

	b.tagLinks = append(b.tagLinks, tagLink{StudyID: parentID, Tag: tag})
}

package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/plew99/cytokines-metaanalysis/internal/coerce"
	"github.com/plew99/cytokines-metaanalysis/internal/report"
	"github.com/plew99/cytokines-metaanalysis/internal/store"
	"github.com/plew99/cytokines-metaanalysis/internal/util"
)

// Raw columns consumed by the derivations. Spellings (typos included)
// follow the source workbook.
const (
	colRawID          = "ID"
	colFirstAuthor    = "First author"
	colYear           = "Year"
	colCountry        = "Country"
	colStudyType      = "Study type"
	colNotes          = "Important notes"
	colCytokine       = "Cytokine"
	colCytokineUnit   = "Cytokine unit"
	colMethod         = "Method of measurement"
	colConcentration  = "Cytokine contrentration mean / median"
	colConcDispersion = "Cytokine concentration SD / IQR"
	colConcDescriptor = "Cytokine conecentration mean-SD / median-IQR"
)

// groupAttrFields are the group-defining attributes, in canonical order.
// Two raw records of the same study agreeing on every one of these values
// describe the same participant group; any difference creates a sibling
// group.
var groupAttrFields = []string{
	"Group description (MCI / DCM / Healthy / …)",
	"Cohort",
	"Subgroups",
	"Pathology",
	"n",
	"Age (mean / median)",
	"Age (SD / IQR)",
	"Age mean-SD / median-IQR",
	"% Males",
	"Ethicity",
}

// DeriveResult summarizes a derivation run
type DeriveResult struct {
	Studies  int
	Groups   int
	Outcomes int
	Skipped  int
}

// asString renders a raw JSON scalar as its natural text form
func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprintf("%v", v)
}

func optStr(v interface{}) *string {
	s := asString(v)
	if s == "" {
		return nil
	}
	return &s
}

// DeriveStudies derives deduplicated Study rows from the persisted raw
// records. The raw ID column becomes the study title (the natural key);
// records sharing an ID collapse into one study, and records whose ID
// already exists in the store are skipped.
func (imp *Importer) DeriveStudies() (*DeriveResult, error) {
	records, err := imp.store.ListRawRecords()
	if err != nil {
		return nil, err
	}
	util.InfoLog("Deriving studies from %d raw records", len(records))

	result := &DeriveResult{}
	err = imp.store.Transaction(func(tx *store.Store) error {
		if imp.replace {
			if err := tx.DeleteAllStudies(); err != nil {
				return err
			}
		}

		seen := map[string]bool{}
		for _, rec := range records {
			title := asString(rec.Data[colRawID])
			if title == "" {
				util.WarnLog("Raw record %d has no ID; skipped", rec.ID)
				result.Skipped++
				continue
			}
			if seen[title] {
				continue
			}
			seen[title] = true

			existing, err := tx.GetStudyByTitle(title)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			st := &store.Study{
				Title:       title,
				FirstAuthor: optStr(rec.Data[colFirstAuthor]),
				Country:     optStr(rec.Data[colCountry]),
				Design:      optStr(rec.Data[colStudyType]),
				Notes:       optStr(rec.Data[colNotes]),
			}
			if year, ok := coerce.ParseInt(rec.Data[colYear]); ok {
				st.Year = &year
			}
			if err := tx.InsertStudy(st); err != nil {
				return err
			}
			result.Studies++
			imp.logger.Log(&report.Event{Level: report.LevelDebug, Event: report.EventDerive,
				RunID: imp.runID, Record: title, Reason: "study created"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.SuccessLog("Derived %d studies (%d records skipped)", result.Studies, result.Skipped)
	return result, nil
}

// groupKey computes the canonical dedup key for a raw record's group
// attributes: every group-defining field in declared order, rendered to
// text. Missing fields render empty so partially-filled records still key
// deterministically.
func groupKey(data map[string]interface{}) string {
	parts := make([]string, 0, len(groupAttrFields))
	for _, field := range groupAttrFields {
		parts = append(parts, asString(data[field]))
	}
	return strings.Join(parts, "|")
}

// DeriveGroups derives StudyGroups and their measured outcome values from
// the persisted raw records. Records with identical group attributes for
// the same study reuse one group and only append an outcome link; any
// attribute difference produces a sibling group.
func (imp *Importer) DeriveGroups() (*DeriveResult, error) {
	records, err := imp.store.ListRawRecords()
	if err != nil {
		return nil, err
	}
	util.InfoLog("Deriving groups from %d raw records", len(records))

	result := &DeriveResult{}
	err = imp.store.Transaction(func(tx *store.Store) error {
		if imp.replace {
			if err := tx.DeleteAllStudyGroups(); err != nil {
				return err
			}
		}

		groups := map[string]*store.StudyGroup{}
		outcomes := map[string]*store.Outcome{}

		for _, rec := range records {
			title := asString(rec.Data[colRawID])
			if title == "" {
				util.WarnLog("Raw record %d has no ID; skipped", rec.ID)
				result.Skipped++
				continue
			}
			study, err := tx.GetStudyByTitle(title)
			if err != nil {
				return err
			}
			if study == nil {
				util.WarnLog("No study titled %q for raw record %d; run raw-to-studies first", title, rec.ID)
				result.Skipped++
				continue
			}

			key := groupKey(rec.Data)
			cacheKey := fmt.Sprintf("%d|%s", study.ID, key)
			group := groups[cacheKey]
			if group == nil {
				group, err = tx.GetStudyGroupByKey(study.ID, key)
				if err != nil {
					return err
				}
			}
			if group == nil {
				attrs := make(map[string]interface{}, len(groupAttrFields))
				for _, field := range groupAttrFields {
					if v, ok := rec.Data[field]; ok {
						attrs[field] = v
					}
				}
				group = &store.StudyGroup{StudyID: study.ID, GroupKey: key, Attrs: attrs}
				if n, ok := coerce.ParseInt(rec.Data["n"]); ok {
					group.N = &n
				}
				if err := tx.InsertStudyGroup(group); err != nil {
					return err
				}
				result.Groups++
				imp.logger.Log(&report.Event{Level: report.LevelDebug, Event: report.EventDerive,
					RunID: imp.runID, Record: title, Reason: "group created"})
			}
			groups[cacheKey] = group

			outcome, err := imp.resolveOutcome(tx, outcomes, study.ID, rec.Data)
			if err != nil {
				return err
			}

			central, dispersion := coerce.ParseDescriptor(asString(rec.Data[colConcDescriptor]))
			link := &store.GroupOutcome{
				GroupID:        group.ID,
				OutcomeID:      outcome.ID,
				ValueType:      string(central),
				DispersionType: string(dispersion),
				Unit:           optStr(rec.Data[colCytokineUnit]),
			}
			// Primary value reads the low end of ranged strings, the
			// dispersion the high end
			if f, ok := coerce.ParseFloat(rec.Data[colConcentration], coerce.TakeFirst); ok {
				link.Value = &f
			}
			if f, ok := coerce.ParseFloat(rec.Data[colConcDispersion], coerce.TakeLast); ok {
				link.Dispersion = &f
			}
			if err := tx.InsertGroupOutcome(link); err != nil {
				return err
			}
			result.Outcomes++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.SuccessLog("Derived %d groups, %d outcome links (%d records skipped)",
		result.Groups, result.Outcomes, result.Skipped)
	return result, nil
}

// resolveOutcome reuses an outcome by its (study, name, unit, method)
// natural key, creating and flushing it when absent so the generated id is
// available for linking. The outcome name comes from the Cytokine column
// when present, else the configured default.
func (imp *Importer) resolveOutcome(tx *store.Store, cache map[string]*store.Outcome,
	studyID int64, data map[string]interface{}) (*store.Outcome, error) {

	name := asString(data[colCytokine])
	if name == "" {
		name = imp.defaultOutcome
	}
	unit := optStr(data[colCytokineUnit])
	method := optStr(data[colMethod])

	key := fmt.Sprintf("%d|%s|%s|%s", studyID, name, asString(data[colCytokineUnit]), asString(data[colMethod]))
	if o := cache[key]; o != nil {
		return o, nil
	}

	o, err := tx.GetOutcomeByKey(studyID, name, unit, method)
	if err != nil {
		return nil, err
	}
	if o == nil {
		o = &store.Outcome{StudyID: studyID, Name: name, Unit: unit, Method: method}
		if err := tx.InsertOutcome(o); err != nil {
			return nil, err
		}
	}
	cache[key] = o
	return o, nil
}

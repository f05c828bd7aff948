// Package importer drives the spreadsheet import pipeline: loading sheets,
// validating rows, building the entity graph and committing or rolling back
// the whole batch as one unit.
package importer

import "github.com/plew99/cytokines-metaanalysis/internal/sheet"

// Kind identifies a target entity kind for a sheet
type Kind string

const (
	KindStudy     Kind = "study"
	KindArm       Kind = "arm"
	KindOutcome   Kind = "outcome"
	KindEffect    Kind = "effect"
	KindCovariate Kind = "covariate"
	KindTag       Kind = "tag"
)

// SheetSpec binds a logical sheet name to its target entity kind and
// required fields
type SheetSpec struct {
	Name     string
	Kind     Kind
	Required []string
}

// SheetOrder maps sheet names to entity kinds in dependency order. The
// ordering is semantically significant: later sheets reference entities
// created by earlier ones through the in-batch cache, so it must be
// processed literally as declared.
var SheetOrder = []SheetSpec{
	{Name: "Study", Kind: KindStudy, Required: []string{"title"}},
	{Name: "Arms", Kind: KindArm, Required: []string{"study_id"}},
	{Name: "Outcomes", Kind: KindOutcome, Required: []string{"study_id", "name"}},
	{Name: "Effects", Kind: KindEffect, Required: []string{"study_id", "outcome_id", "effect_type"}},
	{Name: "Covariates", Kind: KindCovariate, Required: []string{"study_id", "name"}},
	{Name: "Tags", Kind: KindTag, Required: []string{"study_id", "name"}},
}

// RawSheetName is the single flat sheet of the biomarker workbook layout
const RawSheetName = "Arkusz1"

// sheetNames returns the declared sheet names for diagnostics
func sheetNames() string {
	names := ""
	for i, spec := range SheetOrder {
		if i > 0 {
			names += ", "
		}
		names += spec.Name
	}
	return names
}

// Frames holds loaded sheet rows keyed by logical sheet name
type Frames map[string][]*sheet.Row

package main

import (
	"fmt"
	"os"

	"github.com/plew99/cytokines-metaanalysis/internal/importer"
	"github.com/plew99/cytokines-metaanalysis/internal/util"
	"github.com/spf13/cobra"
)

var importXLSXCmd = &cobra.Command{
	Use:   "import-xlsx <workbook.xlsx>",
	Short: "Import an XLSX workbook",
	Long: `Import an XLSX workbook into the database.

Workbooks with the per-entity sheet layout (Study, Arms, Outcomes,
Effects, Covariates, Tags) go through the typed pipeline: every row is
validated, entities are built in dependency order and committed in one
transaction. Any failing row anywhere rolls back the entire batch and
writes a CSV error report.

A workbook whose only recognized sheet is the flat biomarker sheet
(Arkusz1) is ingested as raw records instead. That path is lenient:
fields that fail type coercion keep their original text and are flagged,
never dropped.

A run that rolls back on validation errors exits cleanly; the report
tells the operator what to fix. Only source and database failures exit
non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportXLSX,
}

func init() {
	rootCmd.AddCommand(importXLSXCmd)

	importXLSXCmd.Flags().Bool("dry-run", false, "validate and build without committing")
	importXLSXCmd.Flags().Bool("replace", false, "replace previously imported entities")
}

func runImportXLSX(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	path := args[0]
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("workbook does not exist: %s", path)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	replace, _ := cmd.Flags().GetBool("replace")

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	imp := importer.New(&importer.Config{
		Store:          db,
		Logger:         logger,
		ReportsDir:     util.GetReportsDir(),
		DefaultOutcome: util.GetDefaultOutcome(),
		DryRun:         dryRun,
		Replace:        replace,
	})

	result, err := imp.ImportWorkbook(path)
	if err != nil {
		return err
	}

	if !result.Committed() && result.ReportPath != "" {
		util.InfoLog("Review the error report, fix the workbook and re-run: %s", result.ReportPath)
	}
	return nil
}

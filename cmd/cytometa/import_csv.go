package main

import (
	"fmt"
	"os"

	"github.com/plew99/cytokines-metaanalysis/internal/importer"
	"github.com/plew99/cytokines-metaanalysis/internal/util"
	"github.com/spf13/cobra"
)

var importCSVCmd = &cobra.Command{
	Use:   "import-csv <folder>",
	Short: "Import a folder of per-entity CSV files",
	Long: `Import a folder of CSV files into the database.

The folder is expected to contain one file per entity sheet (Study.csv,
Arms.csv, Outcomes.csv, Effects.csv, Covariates.csv, Tags.csv). Missing
files are skipped with a diagnostic. The pipeline is identical to the
typed XLSX path: all rows are validated first and a single failing row
rolls back the entire batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCSV,
}

func init() {
	rootCmd.AddCommand(importCSVCmd)

	importCSVCmd.Flags().Bool("dry-run", false, "validate and build without committing")
	importCSVCmd.Flags().Bool("replace", false, "replace previously imported entities")
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	dir := args[0]
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("folder does not exist: %s", dir)
	}
	if err == nil && !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
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

	result, err := imp.ImportCSVFolder(dir)
	if err != nil {
		return err
	}

	if !result.Committed() && result.ReportPath != "" {
		util.InfoLog("Review the error report, fix the files and re-run: %s", result.ReportPath)
	}
	return nil
}

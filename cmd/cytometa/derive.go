package main

import (
	"github.com/plew99/cytokines-metaanalysis/internal/importer"
	"github.com/plew99/cytokines-metaanalysis/internal/util"
	"github.com/spf13/cobra"
)

var deriveStudiesCmd = &cobra.Command{
	Use:   "raw-to-studies",
	Short: "Derive deduplicated studies from ingested raw records",
	Long: `Derive Study rows from previously ingested raw biomarker records.

The raw ID column is the natural study key: records sharing an ID
collapse into one study carrying the first record's author, year,
country, design and notes. Records whose ID already exists in the
database are skipped, so re-running is safe.`,
	RunE: runDeriveStudies,
}

var deriveGroupsCmd = &cobra.Command{
	Use:   "raw-to-groups",
	Short: "Derive participant groups and outcome values from raw records",
	Long: `Derive participant groups and their measured cytokine values from
previously ingested raw biomarker records.

Records of the same study with identical group attributes (description,
cohort, size, age summary and so on) share one group; any difference
creates a sibling group. Each record contributes one outcome value,
parsed leniently: comma decimal separators and ranged strings like
"0,49-28,50" are handled here even when the ingest step flagged them.

Run raw-to-studies first so the groups have parent studies to attach to.`,
	RunE: runDeriveGroups,
}

func init() {
	rootCmd.AddCommand(deriveStudiesCmd)
	rootCmd.AddCommand(deriveGroupsCmd)

	deriveStudiesCmd.Flags().Bool("replace", false, "delete previously derived studies first")
	deriveGroupsCmd.Flags().Bool("replace", false, "delete previously derived groups first")
}

func newDeriver(cmd *cobra.Command) (*importer.Importer, func(), error) {
	applyLogFlags()

	replace, _ := cmd.Flags().GetBool("replace")

	db, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}

	logger := newEventLogger()
	imp := importer.New(&importer.Config{
		Store:          db,
		Logger:         logger,
		DefaultOutcome: util.GetDefaultOutcome(),
		Replace:        replace,
	})
	cleanup := func() {
		logger.Close()
		db.Close()
	}
	return imp, cleanup, nil
}

func runDeriveStudies(cmd *cobra.Command, args []string) error {
	imp, cleanup, err := newDeriver(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = imp.DeriveStudies()
	return err
}

func runDeriveGroups(cmd *cobra.Command, args []string) error {
	imp, cleanup, err := newDeriver(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = imp.DeriveGroups()
	return err
}

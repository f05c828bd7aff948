package main

import (
	"fmt"
	"time"

	"github.com/plew99/cytokines-metaanalysis/internal/store"
	"github.com/plew99/cytokines-metaanalysis/internal/util"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show database contents and recent import runs",
	Long: `Display a summary of the database: entity counts per table, derived
group counts and the most recent import runs with their outcome
(committed or rolled back), object counts and error report paths.

Use this to verify what an import actually persisted.`,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Int("runs", 10, "number of recent import runs to list")
	showCmd.Flags().Bool("studies", false, "list imported studies")
}

func runShow(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	runLimit, _ := cmd.Flags().GetInt("runs")
	listStudies, _ := cmd.Flags().GetBool("studies")

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	util.InfoLog("=== Database Contents ===")
	util.InfoLog("")

	counts := []struct {
		label string
		count func() (int, error)
	}{
		{"Studies", db.CountStudies},
		{"Arms", db.CountArms},
		{"Outcomes", db.CountOutcomes},
		{"Effects", db.CountEffects},
		{"Covariates", db.CountCovariates},
		{"Tags", db.CountTags},
		{"Raw records", db.CountRawRecords},
		{"Derived groups", db.CountStudyGroups},
		{"Group outcomes", db.CountGroupOutcomes},
	}
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", c.label, err)
		}
		util.InfoLog("  %-15s %d", c.label+":", n)
	}

	if listStudies {
		studies, err := db.ListStudies()
		if err != nil {
			return fmt.Errorf("failed to list studies: %w", err)
		}
		util.InfoLog("")
		util.InfoLog("=== Studies ===")
		for _, st := range studies {
			line := fmt.Sprintf("  [%d] %s", st.ID, st.Title)
			if st.FirstAuthor != nil {
				line += fmt.Sprintf(" (%s", *st.FirstAuthor)
				if st.Year != nil {
					line += fmt.Sprintf(", %d", *st.Year)
				}
				line += ")"
			}
			util.InfoLog("%s", line)
		}
	}

	runs, err := db.ListImportRuns(runLimit)
	if err != nil {
		return fmt.Errorf("failed to list import runs: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}

	util.InfoLog("")
	util.InfoLog("=== Recent Import Runs ===")
	for _, r := range runs {
		line := fmt.Sprintf("  %s  %-6s %-11s %d objects",
			r.StartedAt.Format(time.DateTime), r.Kind, r.State, r.Objects)
		if r.Errors > 0 {
			line += fmt.Sprintf(", %d errors", r.Errors)
		}
		if r.State == store.RunCommitted {
			util.SuccessLog("%s", line)
		} else {
			util.WarnLog("%s", line)
		}
		if r.ReportPath != "" {
			util.InfoLog("      report: %s", r.ReportPath)
		}
	}
	return nil
}

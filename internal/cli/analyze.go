package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openassembly/propmove/internal/events"
	"github.com/openassembly/propmove/internal/importer"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <export.json>",
	Short: "Analyze an export document for conflicts without importing",
	Long: `Analyze inspects an export document against the local database and
reports every conflict an import would have to resolve: duplicate
propositions, missing users, missing categories, and associations that
point outside the batch. Nothing is written.

Pass "-" to read the document from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	database, files, cfg, err := openEnvironment(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	actorID, err := resolveActingUser(database, cfg, cmd)
	if err != nil {
		return exitError(2, err)
	}

	data, err := readExportDocument(args[0])
	if err != nil {
		return exitError(1, err)
	}

	svc := importer.NewService(database.DB, files, events.NewWriter(database.DB),
		time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	report, err := svc.AnalyzeImport(data, actorID)
	if err != nil {
		return exitError(1, fmt.Errorf("analysis failed: %w", err))
	}

	if jsonOutput(cmd) {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func printReport(report *importer.ConflictReport) {
	fmt.Printf("Import %s\n", report.ImportID)
	fmt.Printf("  propositions: %d total, %d new, %d existing\n",
		report.Summary.TotalPropositions,
		report.Summary.NewPropositions,
		report.Summary.ExistingPropositions)
	fmt.Printf("  conflicts:    %d\n", report.Summary.Conflicts)

	if len(report.ValidationErrors) > 0 {
		fmt.Println("\nValidation errors:")
		for _, v := range report.ValidationErrors {
			if v.PropositionIndex >= 0 {
				fmt.Printf("  [%d] %s: %s\n", v.PropositionIndex, v.Field, v.Message)
			} else {
				fmt.Printf("  %s: %s\n", v.Field, v.Message)
			}
		}
	}

	if len(report.Conflicts) > 0 {
		fmt.Println("\nConflicts:")
		for i, c := range report.Conflicts {
			fmt.Printf("  #%d [%s/%s] %s\n", i, c.Type, c.Severity, c.Message)
			for _, opt := range c.Resolutions {
				fmt.Printf("       - %s: %s\n", opt.Strategy, opt.Label)
			}
		}
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openassembly/propmove/internal/events"
	"github.com/openassembly/propmove/internal/importer"
)

var runCmd = &cobra.Command{
	Use:   "run <export.json>",
	Short: "Analyze and execute an import in one step",
	Long: `Run performs the full import cycle: conflict analysis, configuration
from a resolutions file, and transactional execution.

The resolutions file (--resolutions) holds a JSON array of resolution
objects, each naming a conflict by index or sourceId and the strategy
to apply. Without one, the import proceeds only if analysis found no
error-severity conflicts; missing categories auto-create and users with
an exact email-or-username match map automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runResolutionsPath string
	runForce           bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runResolutionsPath, "resolutions", "", "Path to a JSON file of conflict resolutions")
	runCmd.Flags().BoolVar(&runForce, "force", false, "Execute even when unresolved error-severity conflicts remain")
}

func runRun(cmd *cobra.Command, args []string) error {
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

	var resolutions []importer.ConflictResolution
	if runResolutionsPath != "" {
		raw, err := os.ReadFile(runResolutionsPath)
		if err != nil {
			return exitError(1, fmt.Errorf("failed to read resolutions: %w", err))
		}
		if err := json.Unmarshal(raw, &resolutions); err != nil {
			return exitError(1, fmt.Errorf("failed to parse resolutions: %w", err))
		}
	}

	svc := importer.NewService(database.DB, files, events.NewWriter(database.DB),
		time.Duration(cfg.SessionTTLMinutes)*time.Minute)

	report, err := svc.AnalyzeImport(data, actorID)
	if err != nil {
		return exitError(1, fmt.Errorf("analysis failed: %w", err))
	}

	if unresolved := unresolvedErrors(report, resolutions); len(unresolved) > 0 && !runForce {
		printReport(report)
		fmt.Println()
		for _, msg := range unresolved {
			fmt.Printf("unresolved: %s\n", msg)
		}
		return exitError(3, fmt.Errorf("%d unresolved error-severity conflict(s); supply --resolutions or --force", len(unresolved)))
	}

	configuration := &importer.ImportConfiguration{
		ImportID:    report.ImportID,
		Resolutions: resolutions,
	}
	svc.UpdateSessionConfiguration(report.ImportID, configuration)

	result, err := svc.ExecuteImport(configuration, actorID)
	if err != nil {
		return exitError(1, fmt.Errorf("import failed: %w", err))
	}

	if jsonOutput(cmd) {
		return printJSON(result)
	}
	printResult(result)
	if !result.Success {
		return exitError(1, fmt.Errorf("import rolled back"))
	}
	return nil
}

// unresolvedErrors lists error-severity conflicts with no configured
// resolution.
func unresolvedErrors(report *importer.ConflictReport, resolutions []importer.ConflictResolution) []string {
	resolved := make(map[string]bool)
	for _, res := range resolutions {
		if res.SourceID != "" {
			resolved[res.SourceID] = true
		} else if res.ConflictIndex != nil {
			idx := *res.ConflictIndex
			if idx >= 0 && idx < len(report.Conflicts) {
				resolved[report.Conflicts[idx].Reference.SourceID] = true
			}
		}
	}

	var unresolved []string
	for _, c := range report.Conflicts {
		if c.Severity == importer.SeverityError && !resolved[c.Reference.SourceID] {
			unresolved = append(unresolved, c.Message)
		}
	}
	return unresolved
}

func printResult(result *importer.ImportResult) {
	if result.Success {
		fmt.Println("Import committed.")
	} else {
		fmt.Println("Import rolled back.")
	}
	fmt.Printf("  created: %d  merged: %d  skipped: %d\n",
		result.Summary.PropositionsCreated,
		result.Summary.PropositionsMerged,
		result.Summary.PropositionsSkipped)
	fmt.Printf("  users created: %d  categories created: %d  files uploaded: %d\n",
		result.Summary.UsersCreated,
		result.Summary.CategoriesCreated,
		result.Summary.FilesUploaded)

	for _, d := range result.Details {
		line := fmt.Sprintf("  [%s] %s", d.Action, d.Title)
		if d.TargetID != "" {
			line += " -> " + d.TargetID
		}
		if d.Error != "" {
			line += " (" + d.Error + ")"
		}
		fmt.Println(line)
		for _, w := range d.Warnings {
			fmt.Printf("      warning: %s\n", w)
		}
	}

	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openassembly/propmove/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <proposition-id>...",
	Short: "Export propositions to a portable JSON document",
	Long: `Export serializes one or more propositions, their references, and any
requested enriched data into a self-contained JSON document another
instance can import. File payloads are embedded as base64.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

var (
	exportOut       string
	exportEnvName   string
	exportHistory   bool
	exportVotes     bool
	exportBallots   bool
	exportMandates  bool
	exportComments  bool
	exportEvents    bool
	exportReactions bool
	exportFull      bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "Output file (- for stdout)")
	exportCmd.Flags().StringVar(&exportEnvName, "env-name", "", "Source environment name recorded in the document")
	exportCmd.Flags().BoolVar(&exportHistory, "include-history", false, "Include the status timeline")
	exportCmd.Flags().BoolVar(&exportVotes, "include-votes", false, "Include votes and options")
	exportCmd.Flags().BoolVar(&exportBallots, "include-ballots", false, "Include ballots (implies --include-votes)")
	exportCmd.Flags().BoolVar(&exportMandates, "include-mandates", false, "Include mandates")
	exportCmd.Flags().BoolVar(&exportComments, "include-comments", false, "Include comments")
	exportCmd.Flags().BoolVar(&exportEvents, "include-events", false, "Include scheduled events")
	exportCmd.Flags().BoolVar(&exportReactions, "include-reactions", false, "Include reactions")
	exportCmd.Flags().BoolVar(&exportFull, "full", false, "Include all enriched data")
}

func runExport(cmd *cobra.Command, args []string) error {
	database, files, cfg, err := openEnvironment(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	actorID, err := resolveActingUser(database, cfg, cmd)
	if err != nil {
		return exitError(2, err)
	}

	opts := export.Options{
		IncludeStatusHistory: exportHistory || exportFull,
		IncludeVotes:         exportVotes || exportBallots || exportFull,
		IncludeBallots:       exportBallots || exportFull,
		IncludeMandates:      exportMandates || exportFull,
		IncludeComments:      exportComments || exportFull,
		IncludeEvents:        exportEvents || exportFull,
		IncludeReactions:     exportReactions || exportFull,
	}

	envName := exportEnvName
	if envName == "" {
		envName, _ = os.Hostname()
	}

	exporter := export.NewExporter(database.DB, files)
	doc, err := exporter.Export(args, actorID, envName, opts)
	if err != nil {
		return exitError(1, fmt.Errorf("export failed: %w", err))
	}

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return exitError(1, fmt.Errorf("failed to encode document: %w", err))
	}
	encoded = append(encoded, '\n')

	if exportOut == "-" {
		_, err = os.Stdout.Write(encoded)
	} else {
		err = os.WriteFile(exportOut, encoded, 0644)
	}
	if err != nil {
		return exitError(1, fmt.Errorf("failed to write document: %w", err))
	}

	if exportOut != "-" {
		fmt.Printf("Exported %d proposition(s) to %s\n", len(doc.Propositions), exportOut)
	}
	return nil
}

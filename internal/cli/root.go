package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "propmove",
	Short: "Move governance propositions between platform instances",
	Long: `propmove exports propositions from one platform instance and imports
them into another whose identity space is disjoint. Imports run in two
phases: a conflict analysis that produces a resolution menu, then a
transactional execution applying the chosen resolutions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides PROPMOVE_DB_PATH)")
	rootCmd.PersistentFlags().String("files", "", "Path to file payload directory (overrides PROPMOVE_FILE_DIR)")
	rootCmd.PersistentFlags().String("as", "", "Acting user (id, username, or email)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit JSON instead of human-readable output")
}

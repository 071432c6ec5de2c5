package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/openassembly/propmove/internal/config"
	"github.com/openassembly/propmove/internal/db"
	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/filestore"
	"github.com/openassembly/propmove/internal/store"
)

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return err
}

// openEnvironment loads configuration, applies overriding flags, and
// opens the database plus file store.
func openEnvironment(cmd *cobra.Command) (*db.DB, *filestore.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, exitError(1, fmt.Errorf("failed to load config: %w", err))
	}

	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if fileDir := cmd.Flag("files").Value.String(); fileDir != "" {
		cfg.FileDir = fileDir
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	if err := database.RequiresMigrationError(); err != nil {
		database.Close()
		return nil, nil, nil, exitError(2, err)
	}

	return database, filestore.New(cfg.FileDir), cfg, nil
}

// resolveActingUser resolves the acting user's id from --as, the
// environment, or config.
func resolveActingUser(database *db.DB, cfg *config.Config, cmd *cobra.Command) (string, error) {
	selector := cmd.Flag("as").Value.String()
	if selector == "" {
		selector = cfg.GetActorID()
	}
	if selector == "" {
		return "", fmt.Errorf("no acting user configured (set PROPMOVE_ACTOR or use --as)")
	}

	user, err := store.FindUserBySelector(database.DB, selector)
	if err != nil {
		return "", fmt.Errorf("failed to resolve acting user: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("acting user %q not found", selector)
	}
	return user.ID, nil
}

// readExportDocument loads and decodes an export document from path,
// or stdin when path is "-".
func readExportDocument(path string) (*export.Data, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read export document: %w", err)
	}

	var data export.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse export document: %w", err)
	}
	return &data, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

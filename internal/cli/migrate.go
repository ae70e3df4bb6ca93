package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/storage"
)

var (
	migrateFrom string
	migrateTo   string
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy every session between the filesystem and SQLite backends",
	Long: `Migrate copies annotations and audit events from one backend to the
other, keeping ids, timestamps and sequence numbers. Sessions already present
in the destination are replaced.

Example:
  intralign migrate --from fs --to sqlite`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migrateFrom, "from", string(model.StorageFS), "source backend: fs, sqlite")
	migrateCmd.Flags().StringVar(&migrateTo, "to", string(model.StorageSQLite), "destination backend: fs, sqlite")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateFrom == migrateTo {
		return model.E(model.KindValidation, "cli.migrate", "source and destination are both %s", migrateFrom)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	from, err := storage.OpenKind(model.StorageMode(migrateFrom), a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = from.Close() }()

	to, err := storage.OpenKind(model.StorageMode(migrateTo), a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer func() { _ = to.Close() }()

	stats, err := storage.Migrate(cmd.Context(), from, to, a.logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Migrated %d sessions (%d annotations, %d audit events) from %s to %s\n",
		stats.Sessions, stats.Annotations, stats.Events, from.Name(), to.Name())
	return nil
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/intralign/internal/storage"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report which storage backend is active and whether it is healthy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.openStore()
		if err != nil {
			return err
		}

		out := struct {
			Version  string              `json:"version"`
			Healthy  bool                `json:"healthy"`
			Error    string              `json:"error,omitempty"`
			Sessions int                 `json:"sessions"`
			Storage  storage.Diagnostics `json:"storage"`
		}{Version: version, Healthy: true}

		if err := store.Ping(cmd.Context()); err != nil {
			out.Healthy = false
			out.Error = err.Error()
		} else if sessions, err := store.Sessions(cmd.Context()); err == nil {
			out.Sessions = len(sessions)
		}
		out.Storage = store.Diagnostics()

		return writeJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

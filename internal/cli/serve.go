package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/api"
)

var (
	serveAddr      string
	serveBodyLimit string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis and annotation API over HTTP",
	Long: `Serve exposes analysis, annotation review, audit and export as a JSON API
under /api/v1, plus /healthz.

Example:
  intralign serve --addr 127.0.0.1:8088`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config server.addr)")
	serveCmd.Flags().StringVar(&serveBodyLimit, "body-limit", "4M", "maximum request body size")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	analyzer, err := a.analyzer()
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	if diag := store.Diagnostics(); diag.FallbackActive {
		a.logger.Warn("serving with filesystem fallback storage", zap.String("reason", diag.LastError))
	}

	fmt.Fprintf(os.Stderr, "Listening on http://%s\n", addr)
	srv := api.NewServer(analyzer, store, a.logger, version, serveBodyLimit)
	return srv.Run(cmd.Context(), addr)
}

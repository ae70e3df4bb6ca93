package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/export"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/worker"
)

var (
	exportSession  string
	exportType     string
	exportFormat   string
	exportScope    string
	exportStatuses []string
	exportOut      string
	exportAll      bool
	exportOutDir   string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export annotations or audit history",
	Long: `Export writes annotations or their audit history as JSON lines or CSV.

Scopes:
  gold  validated annotations only (default; training data)
  raw   everything not rejected
  both  every annotation, with its status and decision

Example:
  intralign export --session estudo-01 --out estudo-01.gold.jsonl
  intralign export --session estudo-01 --scope both --format table
  intralign export --type audit --all-sessions --out-dir exports/`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVar(&exportSession, "session", "", "annotation session id")
	f.StringVar(&exportType, "type", export.TypeAnnotations, "what to export: annotations, audit")
	f.StringVar(&exportFormat, "format", export.FormatLines, "output format: lines (JSON lines), table (CSV)")
	f.StringVar(&exportScope, "scope", export.ScopeGold, "annotation scope: gold, raw, both")
	f.StringSliceVar(&exportStatuses, "status", nil, "only these statuses (repeatable)")
	f.StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&exportAll, "all-sessions", false, "export every session into --out-dir")
	f.StringVar(&exportOutDir, "out-dir", "exports", "output directory for --all-sessions")
}

func runExport(cmd *cobra.Command, args []string) error {
	req := export.Request{
		Session: exportSession,
		Type:    exportType,
		Format:  exportFormat,
		Scope:   exportScope,
	}
	for _, raw := range exportStatuses {
		req.Statuses = append(req.Statuses, model.Status(raw))
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return err
	}
	svc := export.NewService(store)

	if exportAll {
		return exportSessions(cmd.Context(), svc, store, req, a.cfg.Concurrency.Workers)
	}
	if exportSession == "" {
		return model.E(model.KindValidation, "cli.export", "--session or --all-sessions is required")
	}

	if exportOut == "" {
		n, err := svc.Export(cmd.Context(), cmd.OutOrStdout(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Exported %d records\n", n)
		return nil
	}

	n, err := exportFile(cmd.Context(), svc, req, exportOut)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Exported %d records to %s\n", n, exportOut)
	return nil
}

// exportSessions writes one file per session, in parallel
func exportSessions(ctx context.Context, svc *export.Service, store *annotation.Store, base export.Request, workers int) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "No sessions to export")
		return nil
	}
	if err := os.MkdirAll(exportOutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	jobs := make([]*worker.FuncJob, 0, len(sessions))
	for _, s := range sessions {
		req := base
		req.Session = s
		path := filepath.Join(exportOutDir, export.FileName(req))
		jobs = append(jobs, &worker.FuncJob{
			Name: s,
			Fn: func(ctx context.Context) error {
				_, err := exportFile(ctx, svc, req, path)
				return err
			},
		})
	}

	failed := 0
	for _, r := range worker.RunAll(ctx, workers, jobs) {
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Name, r.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s\n", r.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions failed to export", failed, len(sessions))
	}
	return nil
}

// exportFile renders into memory first so a failed export leaves no partial file
func exportFile(ctx context.Context, svc *export.Service, req export.Request, path string) (int, error) {
	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf, req)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

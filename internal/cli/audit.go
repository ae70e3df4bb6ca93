package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/model"
)

var (
	auditSession    string
	auditAnnotation string
	auditAction     string
	auditJSON       bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the lifecycle history of a session",
	Long: `Audit lists every recorded transition of a session in order, including
those of rejected annotations.

Example:
  intralign audit --session estudo-01
  intralign audit --session estudo-01 --annotation 6f1c... --json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditSession, "session", "", "annotation session id")
	auditCmd.Flags().StringVar(&auditAnnotation, "annotation", "", "only events of this annotation")
	auditCmd.Flags().StringVar(&auditAction, "action", "", "only this action: create, accept, reject, modify, import")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print JSON instead of a table")
	_ = auditCmd.MarkFlagRequired("session")
}

func runAudit(cmd *cobra.Command, args []string) error {
	f := annotation.AuditFilter{AnnotationID: auditAnnotation}
	if auditAction != "" {
		action, err := model.ParseAction(auditAction)
		if err != nil {
			return model.Wrap(err, model.KindValidation, "cli.audit")
		}
		f.Action = action
	}

	return withStore(func(store *annotation.Store) error {
		events, err := store.Audit(cmd.Context(), auditSession, f)
		if err != nil {
			return err
		}
		if auditJSON {
			return writeJSON(cmd.OutOrStdout(), events)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SEQ\tTIME\tANNOTATION\tACTION\tSTATUS\tCODE")
		for _, e := range events {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.Seq, e.Timestamp.Format("2006-01-02 15:04:05"), e.AnnotationID, e.Action,
				arrow(string(e.FromStatus), string(e.ToStatus)),
				arrow(string(e.FromCode), string(e.ToCode)))
		}
		return tw.Flush()
	})
}

func arrow(from, to string) string {
	if from == "" || from == to {
		return to
	}
	return from + " -> " + to
}

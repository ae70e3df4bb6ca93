package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/model"
)

var (
	annSession     string
	annCode        string
	annOrigin      string
	annSourceStart int
	annSourceEnd   int
	annTargetStart int
	annTargetEnd   int
	annConfidence  float64
	annComment     string
	annStatuses    []string
	annCodes       []string
	annAll         bool
	annJSON        bool
)

// annotateCmd groups the annotation lifecycle commands
var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Create, review and list annotations",
	Long: `Annotations are the reviewed record of detected strategies.

Lifecycle:
  created  -> accepted | rejected | modified
  accepted -> rejected | modified
  modified -> accepted | rejected | modified
  rejected is final; rejected annotations are hidden from lists unless --all
  is given, and their audit history is kept.`,
}

var annotateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an annotation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := model.ParseStrategyCode(annCode)
		if err != nil {
			return model.Wrap(err, model.KindValidation, "cli.annotate")
		}
		return withStore(func(store *annotation.Store) error {
			a, err := store.Create(cmd.Context(), annotation.CreateParams{
				SessionID:     annSession,
				StrategyCode:  code,
				Origin:        model.Origin(annOrigin),
				SourceOffsets: model.Span{Start: annSourceStart, End: annSourceEnd},
				TargetOffsets: model.Span{Start: annTargetStart, End: annTargetEnd},
				Confidence:    annConfidence,
				Comment:       annComment,
			})
			if err != nil {
				return err
			}
			return printAnnotation(cmd.OutOrStdout(), a)
		})
	},
}

var annotateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the annotations of a session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := annotation.Filter{IncludeHidden: annAll}
		for _, raw := range annStatuses {
			st, err := model.ParseStatus(raw)
			if err != nil {
				return model.Wrap(err, model.KindValidation, "cli.annotate")
			}
			f.Statuses = append(f.Statuses, st)
		}
		for _, raw := range annCodes {
			code, err := model.ParseStrategyCode(raw)
			if err != nil {
				return model.Wrap(err, model.KindValidation, "cli.annotate")
			}
			f.Codes = append(f.Codes, code)
		}

		return withStore(func(store *annotation.Store) error {
			list, err := store.List(cmd.Context(), annSession, f)
			if err != nil {
				return err
			}
			if annJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return annotationTable(cmd.OutOrStdout(), list)
		})
	},
}

var annotateGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one annotation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *annotation.Store) error {
			a, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printAnnotation(cmd.OutOrStdout(), a)
		})
	},
}

// transitionCmd builds accept, reject and modify
func transitionCmd(action model.Action, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := annotation.TransitionParams{Comment: annComment}
			if action == model.ActionModify {
				code, err := model.ParseStrategyCode(annCode)
				if err != nil {
					return model.Wrap(err, model.KindValidation, "cli.annotate")
				}
				p.NewCode = code
			}
			return withStore(func(store *annotation.Store) error {
				a, err := store.Transition(cmd.Context(), args[0], action, p)
				if err != nil {
					return err
				}
				return printAnnotation(cmd.OutOrStdout(), a)
			})
		},
	}
	cmd.Flags().StringVar(&annComment, "comment", "", "reviewer comment")
	if action == model.ActionModify {
		cmd.Flags().StringVar(&annCode, "code", "", "corrected strategy code or name")
		_ = cmd.MarkFlagRequired("code")
	}
	return cmd
}

// withStore opens the configured store for the duration of fn
func withStore(fn func(*annotation.Store) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	if diag := store.Diagnostics(); diag.FallbackActive {
		fmt.Fprintf(os.Stderr, "⚠ SQLite unavailable, using the filesystem backend: %s\n", diag.LastError)
	}
	return fn(store)
}

func printAnnotation(w io.Writer, a model.Annotation) error {
	if a.Degraded {
		fmt.Fprintf(os.Stderr, "⚠ saved, but one storage backend failed; run 'intralign status'\n")
	}
	return writeJSON(w, a)
}

func annotationTable(w io.Writer, list []model.Annotation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tSTATUS\tORIGIN\tCONF\tTARGET\tUPDATED")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t[%d,%d)\t%s\n",
			a.ID, a.StrategyCode, a.Status, a.Origin, a.Confidence,
			a.TargetOffsets.Start, a.TargetOffsets.End, a.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.PersistentFlags().StringVar(&annSession, "session", "", "annotation session id")

	f := annotateCreateCmd.Flags()
	f.StringVar(&annCode, "code", "", "strategy code or name (e.g. SL+ or \"lexical substitution\")")
	f.StringVar(&annOrigin, "origin", string(model.OriginHuman), "origin: human, machine")
	f.IntVar(&annSourceStart, "source-start", 0, "source span start (rune offset)")
	f.IntVar(&annSourceEnd, "source-end", 0, "source span end (rune offset)")
	f.IntVar(&annTargetStart, "target-start", 0, "target span start (rune offset)")
	f.IntVar(&annTargetEnd, "target-end", 0, "target span end (rune offset)")
	f.Float64Var(&annConfidence, "confidence", 0, "confidence in [0,1]")
	f.StringVar(&annComment, "comment", "", "comment")
	_ = annotateCreateCmd.MarkFlagRequired("code")

	f = annotateListCmd.Flags()
	f.StringSliceVar(&annStatuses, "status", nil, "only these statuses (repeatable)")
	f.StringSliceVar(&annCodes, "code", nil, "only these strategy codes (repeatable)")
	f.BoolVar(&annAll, "all", false, "include rejected annotations")
	f.BoolVar(&annJSON, "json", false, "print JSON instead of a table")

	annotateCmd.AddCommand(annotateCreateCmd, annotateListCmd, annotateGetCmd,
		transitionCmd(model.ActionAccept, "Accept an annotation"),
		transitionCmd(model.ActionReject, "Reject an annotation"),
		transitionCmd(model.ActionModify, "Correct the strategy code of an annotation"),
	)
}

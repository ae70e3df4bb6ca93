package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/intralign/internal/model"
)

var (
	analyzeOut      string
	analyzeSession  string
	analyzeMicro    bool
	analyzeSalience string
	analyzeTimeout  time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <source> <target>",
	Short: "Align a source text with its simplification and detect strategies",
	Long: `Analyze aligns two texts and reports:
- paragraph, sentence and (with --micro) phrase alignments
- detected simplification strategies with confidence and explanation
- the hierarchical tree of both texts with salience

Sources may be .txt, .md or .html files, or http(s) URLs.
With --session the detected strategies are stored as machine annotations.

Example:
  intralign analyze original.txt simples.txt
  intralign analyze original.md simples.md --micro --json analysis.json
  intralign analyze original.txt simples.txt --session estudo-01`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeOut, "json", "", "write the analysis JSON to this path (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeSession, "session", "", "seed detected strategies into this annotation session")
	analyzeCmd.Flags().BoolVar(&analyzeMicro, "micro", false, "include phrase-level alignment and micro strategies")
	analyzeCmd.Flags().StringVar(&analyzeSalience, "salience", "", "salience method: frequency, keyword")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if analyzeSession != "" {
		if _, err := a.openStore(); err != nil {
			return err
		}
	}
	analyzer, err := a.analyzer()
	if err != nil {
		return err
	}

	src, err := analyzer.LoadDocument(ctx, args[0])
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	tgt, err := analyzer.LoadDocument(ctx, args[1])
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}

	req := model.AnalysisRequest{
		SourceText: src.Text,
		TargetText: tgt.Text,
		Options:    model.AnalysisOptions{SalienceMethod: analyzeSalience},
	}
	if cmd.Flags().Changed("micro") {
		req.Options.IncludeMicroSpans = &analyzeMicro
	}

	var resp *model.AnalysisResponse
	var seeded []model.Annotation
	if analyzeSession != "" {
		resp, seeded, err = analyzer.AnalyzeAndSeed(ctx, req, analyzeSession)
	} else {
		resp, err = analyzer.Analyze(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	for _, w := range src.Warnings {
		resp.Warnings = append(resp.Warnings, "source: "+w)
	}
	for _, w := range tgt.Warnings {
		resp.Warnings = append(resp.Warnings, "target: "+w)
	}

	if analyzeOut != "" {
		f, err := os.Create(analyzeOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := writeJSON(f, resp); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
		return err
	}

	printAnalysisSummary(resp, len(seeded), analyzeSession)
	return nil
}

func printAnalysisSummary(resp *model.AnalysisResponse, seeded int, session string) {
	s := resp.Stats
	fmt.Fprintf(os.Stderr, "✓ Aligned %d/%d paragraphs, %d sentences, %d phrases\n",
		s.AlignedParagraphs, s.SourceParagraphs, s.AlignedSentences, s.AlignedPhrases)
	fmt.Fprintf(os.Stderr, "✓ Detected %d strategies (%d candidates, %d below threshold)\n",
		len(resp.Strategies), s.Candidates, s.Filtered)
	for _, st := range resp.Strategies {
		fmt.Fprintf(os.Stderr, "    %-5s %-9s %.2f  %s\n", st.Code, st.Level, st.Confidence, st.Name)
	}
	if session != "" {
		fmt.Fprintf(os.Stderr, "✓ Stored %d annotations in session %s\n", seeded, session)
	}
	for _, w := range resp.Warnings {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
	}
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/detect"
	"github.com/ppiankov/intralign/internal/embedding"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/storage"
	"github.com/ppiankov/intralign/internal/worker"
)

const (
	exampleSource = "O estudo demonstra que os resultados obtidos através da utilização de métodos estatísticos avançados confirmam a hipótese inicial."
	exampleTarget = "O estudo mostra que os resultados confirmam a ideia inicial."
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	a, err := New(model.DefaultConfig(), embedding.NewHashingProvider(0), nil, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func newStore(t *testing.T) *annotation.Store {
	t.Helper()
	backend, err := storage.Open(model.StorageConfig{Mode: model.StorageFS, Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return annotation.NewStore(backend)
}

func TestAnalyze_Example(t *testing.T) {
	resp, err := newAnalyzer(t).Analyze(context.Background(), model.AnalysisRequest{
		SourceText: exampleSource,
		TargetText: exampleTarget,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.HierarchyVersion != model.HierarchyVersionBase {
		t.Errorf("expected hierarchy version %d, got %d", model.HierarchyVersionBase, resp.HierarchyVersion)
	}
	if resp.SalienceMethod != "frequency" {
		t.Errorf("unexpected salience method %q", resp.SalienceMethod)
	}
	if !resp.AnalyzedAt.Equal(fixedNow) {
		t.Errorf("unexpected timestamp %v", resp.AnalyzedAt)
	}
	if resp.Stats.AlignedParagraphs != 1 || resp.Stats.AlignedSentences != 1 {
		t.Errorf("unexpected stats %+v", resp.Stats)
	}
	if len(resp.Tree.Source) != 1 || resp.Tree.Source[0].Salience != 1 {
		t.Errorf("unexpected source tree %+v", resp.Tree.Source)
	}

	var sl *model.DetectedStrategy
	for i := range resp.Strategies {
		if resp.Strategies[i].Code == model.CodeLexicalSubstitution {
			sl = &resp.Strategies[i]
		}
	}
	if sl == nil || sl.Confidence <= 0 || sl.Explanation.Text == "" {
		t.Fatalf("expected an explained lexical substitution, got %+v", resp.Strategies)
	}
}

func TestAnalyze_PerRequestOptions(t *testing.T) {
	a := newAnalyzer(t)
	on := true

	resp, err := a.Analyze(context.Background(), model.AnalysisRequest{
		SourceText: exampleSource,
		TargetText: exampleTarget,
		Options:    model.AnalysisOptions{SalienceMethod: "keyword", IncludeMicroSpans: &on},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if resp.HierarchyVersion != model.HierarchyVersionMicroSpans || resp.SalienceMethod != "keyword" {
		t.Errorf("options not applied: version %d, method %s", resp.HierarchyVersion, resp.SalienceMethod)
	}

	// The next request without options is back on the defaults
	resp, err = a.Analyze(context.Background(), model.AnalysisRequest{SourceText: exampleSource, TargetText: exampleTarget})
	if err != nil {
		t.Fatal(err)
	}
	if resp.HierarchyVersion != model.HierarchyVersionBase || resp.SalienceMethod != "frequency" {
		t.Errorf("options leaked across requests: version %d, method %s", resp.HierarchyVersion, resp.SalienceMethod)
	}
}

func TestAnalyze_Validation(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Input.MaxBytes = 200
	a, err := New(cfg, embedding.NewHashingProvider(0), nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  model.AnalysisRequest
	}{
		{"missing source", model.AnalysisRequest{TargetText: "x"}},
		{"blank target", model.AnalysisRequest{SourceText: "x", TargetText: "  \n "}},
		{"oversized", model.AnalysisRequest{SourceText: strings.Repeat("palavra ", 40), TargetText: "x"}},
		{"bad method", model.AnalysisRequest{SourceText: "x", TargetText: "y", Options: model.AnalysisOptions{SalienceMethod: "tfidf"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Analyze(context.Background(), tt.req); !model.IsKind(err, model.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

type failing struct{}

func (failing) Code() model.StrategyCode { return model.CodeVoiceChange }
func (failing) Pass() model.Pass         { return model.PassMeso }
func (failing) ExtractFeatures(detect.Pair) (detect.Features, error) {
	return detect.Features{}, errors.New("tagger offline")
}
func (failing) Propose(detect.Features) (detect.Candidate, bool) { return detect.Candidate{}, false }

func TestAnalyze_DetectorFailureIsAWarning(t *testing.T) {
	ds := append(detect.Detectors(), failing{})
	a := newAnalyzer(t, WithDetectors(ds...))

	resp, err := a.Analyze(context.Background(), model.AnalysisRequest{SourceText: exampleSource, TargetText: exampleTarget})
	if err != nil {
		t.Fatalf("expected a completed analysis, got %v", err)
	}
	found := false
	for _, w := range resp.Warnings {
		if strings.HasPrefix(w, string(model.KindDetectionSkip)) && strings.Contains(w, "tagger offline") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a detection warning, got %v", resp.Warnings)
	}
	if len(resp.Strategies) == 0 {
		t.Error("other detectors should still report")
	}
}

func TestAnalyzeAndSeed(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	a := newAnalyzer(t, WithStore(store))

	resp, seeded, err := a.AnalyzeAndSeed(ctx, model.AnalysisRequest{SourceText: exampleSource, TargetText: exampleTarget}, "estudo-1")
	if err != nil {
		t.Fatalf("AnalyzeAndSeed failed: %v", err)
	}
	if len(seeded) != len(resp.Strategies) {
		t.Fatalf("expected %d annotations, got %d", len(resp.Strategies), len(seeded))
	}

	var target model.Annotation
	for _, ann := range seeded {
		if ann.Origin != model.OriginMachine || ann.Status != model.StatusCreated {
			t.Errorf("unexpected seeded annotation %+v", ann)
		}
		if ann.StrategyCode == model.CodeLexicalSubstitution {
			target = ann
		}
	}
	if target.ID == "" {
		t.Fatal("lexical substitution was not seeded")
	}

	if _, err := store.Transition(ctx, target.ID, model.ActionAccept, annotation.TransitionParams{}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	list, err := store.List(ctx, "estudo-1", annotation.Filter{Codes: []model.StrategyCode{model.CodeLexicalSubstitution}})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != model.StatusAccepted || !list[0].Validated {
		t.Errorf("expected the accepted annotation, got %+v", list)
	}
}

func TestAnalyzeAndSeed_CancelledStoresNothing(t *testing.T) {
	store := newStore(t)
	a := newAnalyzer(t, WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := a.AnalyzeAndSeed(ctx, model.AnalysisRequest{SourceText: exampleSource, TargetText: exampleTarget}, "estudo-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	list, err := store.List(context.Background(), "estudo-1", annotation.Filter{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected an untouched store, got %d annotations", len(list))
	}
}

func TestAnalyzeAndSeed_Errors(t *testing.T) {
	req := model.AnalysisRequest{SourceText: exampleSource, TargetText: exampleTarget}

	if _, _, err := newAnalyzer(t).AnalyzeAndSeed(context.Background(), req, "s1"); !model.IsKind(err, model.KindInternal) {
		t.Errorf("expected internal error without a store, got %v", err)
	}
	a := newAnalyzer(t, WithStore(newStore(t)))
	if _, _, err := a.AnalyzeAndSeed(context.Background(), req, "../etc"); !model.IsKind(err, model.KindValidation) {
		t.Errorf("expected validation error for a bad session, got %v", err)
	}
}

func TestAnalyzePair(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "original.md")
	tgt := filepath.Join(dir, "simples.txt")
	if err := os.WriteFile(src, []byte("# Estudo\n\n"+exampleSource+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tgt, []byte(exampleTarget+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newStore(t)
	a := newAnalyzer(t, WithStore(store))

	results := worker.NewBatchProcessor(a, 2).ProcessPairs(context.Background(), []worker.PairSpec{
		{Line: 1, Source: src, Target: tgt, Session: "lote"},
		{Line: 2, Source: filepath.Join(dir, "missing.txt"), Target: tgt},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil || results[0].Response == nil {
		t.Fatalf("first pair failed: %v", results[0].Error)
	}
	if !model.IsKind(results[1].Error, model.KindValidation) {
		t.Errorf("expected a validation error for the missing file, got %v", results[1].Error)
	}

	list, err := store.List(context.Background(), "lote", annotation.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(results[0].Response.Strategies) {
		t.Errorf("expected %d seeded annotations, got %d", len(results[0].Response.Strategies), len(list))
	}
}

// Package pipeline runs a comparative analysis end to end and optionally
// seeds its findings into the annotation store.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/align"
	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/detect"
	"github.com/ppiankov/intralign/internal/embedding"
	"github.com/ppiankov/intralign/internal/extract"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/salience"
	"github.com/ppiankov/intralign/internal/score"
	"github.com/ppiankov/intralign/internal/storage"
	"github.com/ppiankov/intralign/internal/tree"
	"github.com/ppiankov/intralign/internal/worker"
)

const userAgent = "intralign/1 (+https://github.com/ppiankov/intralign)"

// Analyzer orchestrates alignment, detection, scoring and tree building.
// It holds no per-request state; request options are resolved per call.
type Analyzer struct {
	engine   *align.Engine
	cascade  *detect.Cascade
	builder  *tree.Builder
	docs     *extract.Registry
	fetcher  *extract.Fetcher
	store    *annotation.Store
	logger   *zap.Logger
	now      func() time.Time
	maxBytes int

	salienceMethod    string
	includeMicroSpans bool
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithStore enables seeding into an annotation store
func WithStore(s *annotation.Store) Option {
	return func(a *Analyzer) { a.store = s }
}

// WithClock overrides the analysis timestamp source
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithDetectors replaces the detector set
func WithDetectors(ds ...detect.Detector) Option {
	return func(a *Analyzer) {
		a.cascade = detect.NewCascade(a.cascade.Scorer(), a.logger, ds...)
	}
}

// New builds an analyzer from configuration
func New(cfg *model.Config, provider embedding.Provider, logger *zap.Logger, opts ...Option) (*Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !salience.ValidMethod(cfg.Salience.Method) {
		return nil, model.E(model.KindValidation, "pipeline.New", "unknown salience method %q", cfg.Salience.Method)
	}

	profiles, err := score.LoadProfiles(cfg.Scoring.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load scoring profiles: %w", err)
	}
	scorer, err := score.NewScorer(profiles, cfg.Scoring.MinConfidence)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		engine:            align.NewEngine(provider, align.ThresholdsFromConfig(cfg.Alignment), logger),
		cascade:           detect.NewCascade(scorer, logger),
		builder:           tree.NewBuilder(salience.NewProvider(cfg.Salience.CacheSize)),
		docs:              extract.NewRegistry(cfg.Input.MaxBytes),
		fetcher:           extract.NewFetcher(time.Duration(cfg.Embedding.Timeout)*time.Second, userAgent, int64(cfg.Input.MaxBytes), logger),
		logger:            logger,
		now:               time.Now,
		maxBytes:          cfg.Input.MaxBytes,
		salienceMethod:    cfg.Salience.Method,
		includeMicroSpans: cfg.Detection.IncludeMicroSpans,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

type resolved struct {
	method string
	micro  bool
}

func (a *Analyzer) resolve(o model.AnalysisOptions) resolved {
	r := resolved{method: a.salienceMethod, micro: a.includeMicroSpans}
	if o.SalienceMethod != "" {
		r.method = o.SalienceMethod
	}
	if o.IncludeMicroSpans != nil {
		r.micro = *o.IncludeMicroSpans
	}
	return r
}

func (a *Analyzer) checkInput(op string, req model.AnalysisRequest) error {
	if err := model.Validate(op, req); err != nil {
		return err
	}
	for _, side := range []struct{ name, text string }{
		{"source_text", req.SourceText},
		{"target_text", req.TargetText},
	} {
		if strings.TrimSpace(side.text) == "" {
			return model.E(model.KindValidation, op, "%s has no text", side.name)
		}
		if a.maxBytes > 0 && len(side.text) > a.maxBytes {
			return model.E(model.KindValidation, op, "%s is %d bytes, limit is %d", side.name, len(side.text), a.maxBytes)
		}
	}
	return nil
}

// Analyze runs one comparative analysis. Unit and detector failures end up
// in the response warnings; only invalid input and cancellation fail it.
func (a *Analyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error) {
	const op = "pipeline.Analyze"
	if err := a.checkInput(op, req); err != nil {
		return nil, err
	}
	opts := a.resolve(req.Options)
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	alignment, err := a.engine.Align(ctx, req.SourceText, req.TargetText, align.Options{IncludeMicroSpans: opts.micro})
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detected, err := a.cascade.Run(ctx, alignment, detect.Options{IncludeMicroSpans: opts.micro})
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trees, err := a.builder.Build(alignment, req.SourceText, req.TargetText, detected.Strategies, salience.Options{Method: opts.method})
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}

	resp := &model.AnalysisResponse{
		HierarchyVersion: model.HierarchyVersionBase,
		SalienceMethod:   opts.method,
		Tree:             trees,
		Alignments:       alignment.Pairs,
		Strategies:       detected.Strategies,
		Stats:            stats(alignment, detected),
		AnalyzedAt:       a.now().UTC(),
	}
	if opts.micro {
		resp.HierarchyVersion = model.HierarchyVersionMicroSpans
	}
	if resp.Strategies == nil {
		resp.Strategies = []model.DetectedStrategy{}
	}
	resp.Warnings = append(resp.Warnings, alignment.Warnings...)
	resp.Warnings = append(resp.Warnings, detected.Warnings...)

	a.logger.Info("analysis complete",
		zap.Int("source_paragraphs", resp.Stats.SourceParagraphs),
		zap.Int("target_paragraphs", resp.Stats.TargetParagraphs),
		zap.Int("strategies", len(resp.Strategies)),
		zap.Int("warnings", len(resp.Warnings)),
		zap.Duration("elapsed", time.Since(started)))

	return resp, nil
}

func stats(al *align.Alignment, d *detect.Output) model.AnalysisStats {
	s := model.AnalysisStats{
		SourceParagraphs: len(al.Source),
		TargetParagraphs: len(al.Target),
		Candidates:       d.Candidates,
		Filtered:         d.Filtered,
	}
	for _, p := range al.Pairs {
		if !p.Aligned {
			continue
		}
		switch p.Level {
		case model.LevelParagraph:
			s.AlignedParagraphs++
		case model.LevelSentence:
			s.AlignedSentences++
		case model.LevelPhrase:
			s.AlignedPhrases++
		}
	}
	return s
}

// AnalyzeAndSeed analyzes req and stores every detected strategy as a
// machine annotation of session. Nothing is stored unless the analysis
// completed and ctx is still live.
func (a *Analyzer) AnalyzeAndSeed(ctx context.Context, req model.AnalysisRequest, session string) (*model.AnalysisResponse, []model.Annotation, error) {
	const op = "pipeline.AnalyzeAndSeed"
	if a.store == nil {
		return nil, nil, model.E(model.KindInternal, op, "no annotation store configured")
	}
	if !storage.ValidSession(session) {
		return nil, nil, model.E(model.KindValidation, op, "invalid session id %q", session)
	}

	resp, err := a.Analyze(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	seeded, err := a.store.SeedMachine(ctx, session, resp.Strategies)
	return resp, seeded, err
}

// LoadDocument reads a local file or an http(s) URL and extracts its text
func (a *Analyzer) LoadDocument(ctx context.Context, location string) (extract.Result, error) {
	if extract.IsURL(location) {
		return a.docs.Load(ctx, a.fetcher, location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		if os.IsNotExist(err) {
			return extract.Result{}, model.E(model.KindValidation, "pipeline.LoadDocument", "%s does not exist", location)
		}
		return extract.Result{}, fmt.Errorf("read %s: %w", location, err)
	}
	return a.docs.Extract(filepath.Base(location), data)
}

// AnalyzePair loads both documents of a batch pair and analyzes them,
// seeding the pair's session when one is named and a store is configured
func (a *Analyzer) AnalyzePair(ctx context.Context, pair worker.PairSpec) (*model.AnalysisResponse, error) {
	src, err := a.LoadDocument(ctx, pair.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	tgt, err := a.LoadDocument(ctx, pair.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	req := model.AnalysisRequest{SourceText: src.Text, TargetText: tgt.Text}

	var resp *model.AnalysisResponse
	if pair.Session != "" && a.store != nil {
		resp, _, err = a.AnalyzeAndSeed(ctx, req, pair.Session)
	} else {
		resp, err = a.Analyze(ctx, req)
	}
	if err != nil {
		return resp, err
	}

	for _, w := range src.Warnings {
		resp.Warnings = append(resp.Warnings, "source: "+w)
	}
	for _, w := range tgt.Warnings {
		resp.Warnings = append(resp.Warnings, "target: "+w)
	}
	return resp, nil
}

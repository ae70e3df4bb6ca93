package detect

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/align"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/score"
)

// Options are per-call cascade switches
type Options struct {
	IncludeMicroSpans bool
}

// Output is the result of one cascade run
type Output struct {
	Strategies []model.DetectedStrategy
	Warnings   []string
	Candidates int // Proposed before filtering
	Filtered   int // Dropped for falling below the code's minimum confidence
}

// Cascade runs the detectors pass by pass and scores their candidates
type Cascade struct {
	detectors []Detector
	scorer    *score.Scorer
	logger    *zap.Logger
}

// NewCascade creates a cascade. With no detectors the full set is used.
func NewCascade(scorer *score.Scorer, logger *zap.Logger, detectors ...Detector) *Cascade {
	if len(detectors) == 0 {
		detectors = Detectors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{detectors: detectors, scorer: scorer, logger: logger}
}

// Scorer returns the confidence engine the cascade scores with
func (c *Cascade) Scorer() *score.Scorer {
	return c.scorer
}

type scored struct {
	Candidate
	result score.Result
	level  model.Level
}

// Run detects strategies over every pair of a. Detector failures are
// recorded as warnings and never abort the run; only context cancellation does.
func (c *Cascade) Run(ctx context.Context, a *align.Alignment, opts Options) (*Output, error) {
	out := &Output{}
	var all []scored

	passes := []struct {
		pass  model.Pass
		pairs []Pair
	}{
		{model.PassMacro, macroPairs(a.Pairs)},
		{model.PassMeso, mesoPairs(a.Pairs)},
	}
	if opts.IncludeMicroSpans {
		passes = append(passes, struct {
			pass  model.Pass
			pairs []Pair
		}{model.PassMicro, microPairs(a.Pairs)})
	}

	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, d := range c.detectors {
			if d.Pass() != p.pass {
				continue
			}
			for _, pair := range p.pairs {
				cand, ok, err := c.runDetector(d, pair)
				if err != nil {
					out.Warnings = append(out.Warnings, fmt.Sprintf("%s:%s: %v", model.KindDetectionSkip, d.Code(), err))
					c.logger.Warn("detector skipped pair",
						zap.String("code", string(d.Code())),
						zap.String("level", string(pair.Level)),
						zap.Int("source", pair.SourceOrdinal),
						zap.Int("target", pair.TargetOrdinal),
						zap.Error(err))
					continue
				}
				if !ok {
					continue
				}
				out.Candidates++

				res := c.scorer.Score(score.Input{
					Code:       cand.Code(),
					RawScore:   cand.RawScore,
					Features:   cand.Features.Values,
					Custom:     cand.Features.Custom,
					Similarity: pair.Similarity,
				})
				if !res.Passed {
					out.Filtered++
					c.logger.Debug("candidate below minimum", zap.String("candidate", score.Describe(cand.Code(), res)))
					continue
				}
				all = append(all, scored{Candidate: cand, result: res, level: pair.Level})
			}
		}
	}

	out.Strategies = resolve(all)
	c.logger.Debug("cascade complete",
		zap.Int("candidates", out.Candidates),
		zap.Int("filtered", out.Filtered),
		zap.Int("strategies", len(out.Strategies)))
	return out, nil
}

// runDetector isolates one detector call, turning panics into errors
func (c *Cascade) runDetector(d Detector, p Pair) (cand Candidate, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			cand, ok, err = Candidate{}, false, fmt.Errorf("panic: %v", r)
		}
	}()

	f, err := d.ExtractFeatures(p)
	if err != nil {
		return Candidate{}, false, err
	}
	cand, ok = d.Propose(f)
	if ok && cand.Code() != d.Code() {
		return Candidate{}, false, fmt.Errorf("detector proposed %s", cand.Code())
	}
	return cand, ok, nil
}

func macroPairs(pairs []model.AlignmentPair) []Pair {
	var out []Pair
	for _, p := range pairs {
		if p.Level != model.LevelParagraph || !p.Aligned {
			continue
		}
		out = append(out, Pair{AlignmentPair: p, Sentences: sentencesOf(pairs, p.SourceOrdinal, p.TargetOrdinal)})
	}
	return out
}

func mesoPairs(pairs []model.AlignmentPair) []Pair {
	var out []Pair
	for _, p := range pairs {
		if p.Level != model.LevelSentence || !p.Aligned {
			continue
		}
		out = append(out, Pair{AlignmentPair: p, Sentences: sentencesOf(pairs, p.ParentSource, p.ParentTarget)})
	}
	return out
}

// microPairs keeps one-sided phrases too: they carry insertions and reductions
func microPairs(pairs []model.AlignmentPair) []Pair {
	var out []Pair
	for _, p := range pairs {
		if p.Level == model.LevelPhrase {
			out = append(out, Pair{AlignmentPair: p})
		}
	}
	return out
}

func sentencesOf(pairs []model.AlignmentPair, parentSrc, parentTgt int) []model.AlignmentPair {
	var out []model.AlignmentPair
	for _, p := range pairs {
		if p.Level == model.LevelSentence && p.ParentSource == parentSrc && p.ParentTarget == parentTgt {
			out = append(out, p)
		}
	}
	return out
}

// resolve applies the overlap policy within each level and returns the
// strategies in response order with their ids assigned
func resolve(all []scored) []model.DetectedStrategy {
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].RawScore != all[j].RawScore {
			return all[i].RawScore > all[j].RawScore
		}
		if all[i].result.Confidence != all[j].result.Confidence {
			return all[i].result.Confidence > all[j].result.Confidence
		}
		return all[i].Code().Order() < all[j].Code().Order()
	})

	var winners []model.DetectedStrategy
	for _, s := range all {
		placed := false
		for i := range winners {
			w := &winners[i]
			if w.Level == s.level && w.TargetSpan.Overlaps(s.TargetSpan) {
				w.Alternates = append(w.Alternates, model.Alternate{
					Code:       s.Code(),
					Confidence: s.result.Confidence,
					RawScore:   s.RawScore,
				})
				placed = true
				break
			}
		}
		if !placed {
			winners = append(winners, toStrategy(s))
		}
	}

	sort.SliceStable(winners, func(i, j int) bool {
		a, b := winners[i], winners[j]
		if la, lb := levelOrder(a.Level), levelOrder(b.Level); la != lb {
			return la < lb
		}
		if a.TargetSpan.Start != b.TargetSpan.Start {
			return a.TargetSpan.Start < b.TargetSpan.Start
		}
		if a.SourceSpan.Start != b.SourceSpan.Start {
			return a.SourceSpan.Start < b.SourceSpan.Start
		}
		return a.Code.Order() < b.Code.Order()
	})
	for i := range winners {
		winners[i].ID = fmt.Sprintf("s-%d", i+1)
	}
	return winners
}

func toStrategy(s scored) model.DetectedStrategy {
	evidence := make([]model.Feature, 0, len(s.Features.Values)+len(s.Features.Custom))
	evidence = append(evidence, s.Features.Values...)
	evidence = append(evidence, s.Features.Custom...)

	return model.DetectedStrategy{
		Code:        s.Code(),
		Name:        s.Code().Name(),
		Level:       s.level,
		Confidence:  s.result.Confidence,
		RawScore:    s.RawScore,
		Quality:     s.result.Quality,
		Evidence:    evidence,
		SourceSpan:  s.SourceSpan,
		TargetSpan:  s.TargetSpan,
		Explanation: s.result.Explanation,
	}
}

func levelOrder(l model.Level) int {
	switch l {
	case model.LevelParagraph:
		return 0
	case model.LevelSentence:
		return 1
	default:
		return 2
	}
}

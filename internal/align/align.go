// Package align matches discourse units of a source text to units of its
// simplified target, level by level.
package align

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/embedding"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/textutil"
)

// Thresholds are the minimum similarities for an alignment at each level.
// A target that misses alignment but reaches FragmentRatio × threshold
// against an aligned source is recorded as a fragment of it.
type Thresholds struct {
	Paragraph     float64
	Sentence      float64
	Phrase        float64
	FragmentRatio float64
}

// ThresholdsFromConfig converts the configuration block
func ThresholdsFromConfig(cfg model.AlignmentConfig) Thresholds {
	return Thresholds{
		Paragraph:     cfg.ParagraphThreshold,
		Sentence:      cfg.SentenceThreshold,
		Phrase:        cfg.PhraseThreshold,
		FragmentRatio: cfg.FragmentRatio,
	}
}

func (t Thresholds) forLevel(l model.Level) float64 {
	switch l {
	case model.LevelParagraph:
		return t.Paragraph
	case model.LevelSentence:
		return t.Sentence
	default:
		return t.Phrase
	}
}

// Options are per-call alignment switches
type Options struct {
	IncludeMicroSpans bool
}

// Unit is a segmented unit with its alignment outcome
type Unit struct {
	model.Segment
	Level      model.Level `json:"level"`
	AlignedTo  int         `json:"aligned_to"`
	Similarity float64     `json:"similarity"`
	Evidence   []string    `json:"evidence,omitempty"`
	Children   []Unit      `json:"children,omitempty"`
}

// Alignment is the outcome of aligning two texts
type Alignment struct {
	Source []Unit
	Target []Unit

	// Pairs lists paragraph pairs first, then the sentence pairs of each
	// aligned paragraph pair, then phrase pairs
	Pairs    []model.AlignmentPair
	Warnings []string
}

// Engine aligns texts with an embedding provider
type Engine struct {
	provider   embedding.Provider
	thresholds Thresholds
	logger     *zap.Logger
}

// NewEngine creates an alignment engine
func NewEngine(provider embedding.Provider, thresholds Thresholds, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{provider: provider, thresholds: thresholds, logger: logger}
}

// Segment builds the unit hierarchy of text without aligning it
func Segment(text string, includePhrases bool) []Unit {
	var paras []Unit
	for _, p := range textutil.Paragraphs(text) {
		pu := newUnit(p, model.LevelParagraph)
		for _, s := range textutil.Sentences(p.Text, p.Span.Start) {
			su := newUnit(s, model.LevelSentence)
			if includePhrases {
				for _, ph := range textutil.Phrases(s.Text, s.Span.Start) {
					su.Children = append(su.Children, newUnit(ph, model.LevelPhrase))
				}
			}
			pu.Children = append(pu.Children, su)
		}
		paras = append(paras, pu)
	}
	return paras
}

func newUnit(seg model.Segment, level model.Level) Unit {
	return Unit{Segment: seg, Level: level, AlignedTo: -1}
}

// Align segments and aligns source against target. Embedding failures of
// individual units are recorded as evidence and never abort the run; only
// context cancellation does.
func (e *Engine) Align(ctx context.Context, source, target string, opts Options) (*Alignment, error) {
	a := &Alignment{
		Source: Segment(source, opts.IncludeMicroSpans),
		Target: Segment(target, opts.IncludeMicroSpans),
	}

	paraPairs, err := e.alignLevel(ctx, a, model.LevelParagraph, a.Source, a.Target, -1, -1)
	if err != nil {
		return nil, err
	}
	a.Pairs = append(a.Pairs, paraPairs...)

	var sentPairs []model.AlignmentPair
	type sentenceScope struct {
		src, tgt   []Unit
		srcP, tgtP int
	}
	var phraseScopes []sentenceScope

	for _, pp := range paraPairs {
		if !pp.Aligned {
			continue
		}
		src := a.Source[pp.SourceOrdinal].Children
		tgt := a.Target[pp.TargetOrdinal].Children
		pairs, err := e.alignLevel(ctx, a, model.LevelSentence, src, tgt, pp.SourceOrdinal, pp.TargetOrdinal)
		if err != nil {
			return nil, err
		}
		sentPairs = append(sentPairs, pairs...)

		if opts.IncludeMicroSpans {
			for _, sp := range pairs {
				if sp.Aligned {
					phraseScopes = append(phraseScopes, sentenceScope{
						src: src[sp.SourceOrdinal].Children, tgt: tgt[sp.TargetOrdinal].Children,
						srcP: sp.SourceOrdinal, tgtP: sp.TargetOrdinal,
					})
				}
			}
		}
	}
	a.Pairs = append(a.Pairs, sentPairs...)

	for _, scope := range phraseScopes {
		pairs, err := e.alignLevel(ctx, a, model.LevelPhrase, scope.src, scope.tgt, scope.srcP, scope.tgtP)
		if err != nil {
			return nil, err
		}
		a.Pairs = append(a.Pairs, pairs...)
	}

	e.logger.Debug("alignment complete",
		zap.Int("source_paragraphs", len(a.Source)),
		zap.Int("target_paragraphs", len(a.Target)),
		zap.Int("pairs", len(a.Pairs)))

	return a, nil
}

type candidate struct {
	src, tgt int
	sim      float64
}

// alignLevel greedily matches src against tgt: every (source, target)
// similarity is ranked by similarity desc, then source index, then target
// index, and a pair is taken when both sides are still free and it reaches
// the level threshold. src and tgt are updated in place.
func (e *Engine) alignLevel(ctx context.Context, a *Alignment, level model.Level, src, tgt []Unit, parentSrc, parentTgt int) ([]model.AlignmentPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	threshold := e.thresholds.forLevel(level)

	srcVecs, err := e.embedAll(ctx, a, level, "source", src)
	if err != nil {
		return nil, err
	}
	tgtVecs, err := e.embedAll(ctx, a, level, "target", tgt)
	if err != nil {
		return nil, err
	}

	sims := make([][]float64, len(src))
	var cands []candidate
	for i := range src {
		sims[i] = make([]float64, len(tgt))
		if srcVecs[i] == nil {
			continue
		}
		for j := range tgt {
			if tgtVecs[j] == nil {
				continue
			}
			sims[i][j] = embedding.CosineSimilarity(srcVecs[i], tgtVecs[j])
			cands = append(cands, candidate{src: i, tgt: j, sim: sims[i][j]})
		}
	}

	sort.SliceStable(cands, func(x, y int) bool {
		if cands[x].sim != cands[y].sim {
			return cands[x].sim > cands[y].sim
		}
		if cands[x].src != cands[y].src {
			return cands[x].src < cands[y].src
		}
		return cands[x].tgt < cands[y].tgt
	})

	srcTaken := make([]bool, len(src))
	tgtTaken := make([]bool, len(tgt))
	for _, c := range cands {
		if c.sim < threshold {
			break
		}
		if srcTaken[c.src] || tgtTaken[c.tgt] {
			continue
		}
		srcTaken[c.src], tgtTaken[c.tgt] = true, true
		src[c.src].AlignedTo, src[c.src].Similarity = c.tgt, c.sim
		tgt[c.tgt].AlignedTo, tgt[c.tgt].Similarity = c.src, c.sim
	}

	// Fragments: unaligned targets close enough to an aligned source
	fragments := make(map[int][]int)
	cutoff := e.thresholds.FragmentRatio * threshold
	for j := range tgt {
		if tgtTaken[j] || tgtVecs[j] == nil {
			continue
		}
		best, bestSim := -1, 0.0
		for i := range src {
			if !srcTaken[i] {
				continue
			}
			if sims[i][j] >= cutoff && sims[i][j] > bestSim {
				best, bestSim = i, sims[i][j]
			}
		}
		if best >= 0 {
			fragments[best] = append(fragments[best], j)
			tgt[j].Similarity = bestSim
			tgt[j].Evidence = append(tgt[j].Evidence, fmt.Sprintf("fragment_of:%d", best))
		}
	}

	var pairs []model.AlignmentPair
	for i := range src {
		p := model.AlignmentPair{
			Level:         level,
			SourceOrdinal: i,
			TargetOrdinal: -1,
			ParentSource:  parentSrc,
			ParentTarget:  parentTgt,
			SourceSpan:    src[i].Span,
			SourceText:    src[i].Text,
			Method:        model.MethodUnaligned,
		}
		if srcTaken[i] {
			j := src[i].AlignedTo
			p.TargetOrdinal = j
			p.TargetSpan = tgt[j].Span
			p.TargetText = tgt[j].Text
			p.Similarity = src[i].Similarity
			p.Method = model.MethodEmbedding
			p.Aligned = true
			p.Fragments = fragments[i]
			for _, f := range p.Fragments {
				p.Evidence = append(p.Evidence, fmt.Sprintf("fragment:%d", f))
			}
		} else if srcVecs[i] != nil {
			best := maxOf(sims[i])
			src[i].Similarity = best
			p.Similarity = best
			src[i].Evidence = append(src[i].Evidence, missEvidence(best, threshold))
		}
		p.Evidence = append(p.Evidence, src[i].Evidence...)
		pairs = append(pairs, p)
	}

	for j := range tgt {
		if tgtTaken[j] {
			continue
		}
		if tgtVecs[j] != nil && len(tgt[j].Evidence) == 0 {
			best := 0.0
			for i := range src {
				if sims[i][j] > best {
					best = sims[i][j]
				}
			}
			tgt[j].Similarity = best
			tgt[j].Evidence = append(tgt[j].Evidence, missEvidence(best, threshold))
		}
		pairs = append(pairs, model.AlignmentPair{
			Level:         level,
			SourceOrdinal: -1,
			TargetOrdinal: j,
			ParentSource:  parentSrc,
			ParentTarget:  parentTgt,
			TargetSpan:    tgt[j].Span,
			TargetText:    tgt[j].Text,
			Similarity:    tgt[j].Similarity,
			Method:        model.MethodUnaligned,
			Evidence:      append([]string(nil), tgt[j].Evidence...),
		})
	}

	return pairs, nil
}

// embedAll returns one vector per unit; failed units get nil and carry
// embedding_error evidence
func (e *Engine) embedAll(ctx context.Context, a *Alignment, level model.Level, side string, units []Unit) ([][]float32, error) {
	vecs := make([][]float32, len(units))
	for i := range units {
		vec, err := e.provider.Embed(ctx, units[i].Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			units[i].Evidence = append(units[i].Evidence, "embedding_error: "+err.Error())
			a.Warnings = append(a.Warnings, fmt.Sprintf("%s: %s %s %d: %v", model.KindAlignmentFailure, level, side, i, err))
			e.logger.Warn("embedding failed",
				zap.String("level", string(level)),
				zap.String("side", side),
				zap.Int("ordinal", i),
				zap.Error(err))
			continue
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// missEvidence explains why a unit with a vector stayed unaligned
func missEvidence(best, threshold float64) string {
	if best < threshold {
		return fmt.Sprintf("below_threshold:%.2f", best)
	}
	return fmt.Sprintf("counterpart_taken:%.2f", best)
}

func maxOf(xs []float64) float64 {
	best := 0.0
	for _, x := range xs {
		if x > best {
			best = x
		}
	}
	return best
}

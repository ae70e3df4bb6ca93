package detect

import (
	"math"

	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/textutil"
)

// lexicalSubstitution: new, shorter content words replace dropped ones
type lexicalSubstitution struct{}

func (lexicalSubstitution) Code() model.StrategyCode { return model.CodeLexicalSubstitution }
func (lexicalSubstitution) Pass() model.Pass         { return model.PassMeso }

func (lexicalSubstitution) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	d := diffContent(p.SourceText, p.TargetText)

	drop := 0.0
	if dl := meanRuneLen(d.dropped); dl > 0 && len(d.novel) > 0 {
		drop = clamp01((dl - meanRuneLen(d.novel)) / dl)
	}

	f.add("novel_ratio", d.novelRatio())
	f.add("dropped_ratio", d.droppedRatio())
	f.add("word_length_drop", drop)
	return f, nil
}

func (lexicalSubstitution) Propose(f Features) (Candidate, bool) {
	novel, dropped := f.Get("novel_ratio"), f.Get("dropped_ratio")
	if novel < 0.15 || dropped < 0.15 {
		return Candidate{}, false
	}
	raw := ((novel+dropped)/2 + f.Get("word_length_drop")) / 2
	return propose(autoLexicalSubstitution, raw, f)
}

// sentenceFragmentation: a source sentence whose content spilled into
// additional target sentences
type sentenceFragmentation struct{}

func (sentenceFragmentation) Code() model.StrategyCode { return model.CodeSentenceFragmentation }
func (sentenceFragmentation) Pass() model.Pass         { return model.PassMeso }

func (sentenceFragmentation) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	src := len(textutil.Words(p.SourceText))
	tgt := len(textutil.Words(p.TargetText))
	f.add("fragment_count", float64(len(p.Fragments)))
	f.add("length_ratio_drop", clamp01(1-ratio(tgt, src)))
	return f, nil
}

func (sentenceFragmentation) Propose(f Features) (Candidate, bool) {
	n := f.Get("fragment_count")
	if n < 1 {
		return Candidate{}, false
	}
	c, ok := propose(autoSentenceFragmentation, 0.3*n+0.5*f.Get("length_ratio_drop"), f)
	c.TargetSpan = fragmentSpan(f.Pair)
	return c, ok
}

// fragmentSpan widens the target span over the sibling target sentences
// that split off the pair's source
func fragmentSpan(p Pair) model.Span {
	span := p.TargetSpan
	for _, frag := range p.Fragments {
		for _, s := range p.Sentences {
			if s.HasSource() || s.TargetOrdinal != frag {
				continue
			}
			if s.TargetSpan.Start < span.Start {
				span.Start = s.TargetSpan.Start
			}
			if s.TargetSpan.End > span.End {
				span.End = s.TargetSpan.End
			}
		}
	}
	return span
}

// voiceChange: passive constructions appear or disappear
type voiceChange struct{}

func (voiceChange) Code() model.StrategyCode { return model.CodeVoiceChange }
func (voiceChange) Pass() model.Pass         { return model.PassMeso }

func (voiceChange) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	sp, tp := countPassives(p.SourceText), countPassives(p.TargetText)
	f.add("source_passive", float64(sp))
	f.add("target_passive", float64(tp))
	f.add("passive_delta", math.Min(1, math.Abs(float64(sp-tp))))
	return f, nil
}

func (voiceChange) Propose(f Features) (Candidate, bool) {
	delta := f.Get("passive_delta")
	if delta == 0 {
		return Candidate{}, false
	}
	raw := 0.6
	if f.Get("target_passive") == 0 {
		// passive to active is the typical simplification
		raw = 1
	}
	return propose(autoVoiceChange, raw*delta, f)
}

// reordering: shared content words appear in a different order
type reordering struct{}

func (reordering) Code() model.StrategyCode { return model.CodeReordering }
func (reordering) Pass() model.Pass         { return model.PassMeso }

func (reordering) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	inv, total := inversions(textutil.ContentWords(p.SourceText), textutil.ContentWords(p.TargetText))
	f.add("shared_pairs", float64(total))
	f.add("inversion_ratio", ratio(inv, total))
	return f, nil
}

func (reordering) Propose(f Features) (Candidate, bool) {
	inv := f.Get("inversion_ratio")
	if f.Get("shared_pairs") < 3 || inv < 0.2 {
		return Candidate{}, false
	}
	return propose(autoReordering, inv, f)
}

// figurativeSimplification: idioms and comparisons removed
type figurativeSimplification struct{}

func (figurativeSimplification) Code() model.StrategyCode { return model.CodeFigurativeSimplification }
func (figurativeSimplification) Pass() model.Pass         { return model.PassMeso }

func (figurativeSimplification) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	sf := countPhrases(p.SourceText, figurativeMarkers)
	tf := countPhrases(p.TargetText, figurativeMarkers)
	removed := 0.0
	if sf > 0 && sf > tf {
		removed = float64(sf-tf) / float64(sf)
	}
	f.add("source_figurative", float64(sf))
	f.add("target_figurative", float64(tf))
	f.add("figurative_removed", removed)
	return f, nil
}

func (figurativeSimplification) Propose(f Features) (Candidate, bool) {
	removed := f.Get("figurative_removed")
	if removed == 0 {
		return Candidate{}, false
	}
	return propose(autoFigurativeSimplification, removed, f)
}

// anaphoraExplicitation: pronouns replaced by explicit noun phrases
type anaphoraExplicitation struct{}

func (anaphoraExplicitation) Code() model.StrategyCode { return model.CodeAnaphoraExplicitation }
func (anaphoraExplicitation) Pass() model.Pass         { return model.PassMeso }

func (anaphoraExplicitation) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	sp := countWords(textutil.Words(p.SourceText), anaphoricPronouns)
	tp := countWords(textutil.Words(p.TargetText), anaphoricPronouns)
	d := diffContent(p.SourceText, p.TargetText)

	resolution := 0.0
	if sp > tp && len(d.novel) > 0 {
		resolution = float64(sp-tp) / float64(sp)
	}
	f.add("source_pronouns", float64(sp))
	f.add("target_pronouns", float64(tp))
	f.add("novel_words", float64(len(d.novel)))
	f.add("pronoun_resolution", resolution)
	return f, nil
}

func (anaphoraExplicitation) Propose(f Features) (Candidate, bool) {
	r := f.Get("pronoun_resolution")
	if r == 0 {
		return Candidate{}, false
	}
	return propose(autoAnaphoraExplicitation, r, f)
}

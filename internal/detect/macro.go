package detect

import (
	"math"
	"sort"

	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/textutil"
)

// globalRewriting: an aligned paragraph that shares little vocabulary
type globalRewriting struct{}

func (globalRewriting) Code() model.StrategyCode { return model.CodeGlobalRewriting }
func (globalRewriting) Pass() model.Pass         { return model.PassMacro }

func (globalRewriting) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	d := diffContent(p.SourceText, p.TargetText)
	f.add("content_overlap", d.overlap())
	f.add("novelty", 1-d.overlap())
	return f, nil
}

func (globalRewriting) Propose(f Features) (Candidate, bool) {
	novelty := f.Get("novelty")
	if novelty < 0.65 {
		return Candidate{}, false
	}
	return propose(autoGlobalRewriting, novelty, f)
}

// structuralReorganization: sentence order crossings or a changed sentence count
type structuralReorganization struct{}

func (structuralReorganization) Code() model.StrategyCode { return model.CodeStructuralReorganization }
func (structuralReorganization) Pass() model.Pass         { return model.PassMacro }

func (structuralReorganization) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}

	var ns, nt int
	var aligned []model.AlignmentPair
	for _, s := range p.Sentences {
		if s.HasSource() {
			ns++
		}
		if s.HasTarget() {
			nt++
		}
		if s.Aligned {
			aligned = append(aligned, s)
		}
	}
	sort.Slice(aligned, func(i, j int) bool { return aligned[i].SourceOrdinal < aligned[j].SourceOrdinal })

	crossings, total := 0, 0
	for i := 0; i < len(aligned); i++ {
		for j := i + 1; j < len(aligned); j++ {
			total++
			if aligned[i].TargetOrdinal > aligned[j].TargetOrdinal {
				crossings++
			}
		}
	}

	delta := 0.0
	if m := math.Max(float64(ns), float64(nt)); m > 0 {
		delta = math.Abs(float64(ns-nt)) / m
	}

	f.add("source_sentences", float64(ns))
	f.add("target_sentences", float64(nt))
	f.add("crossing_ratio", ratio(crossings, total))
	f.add("sentence_count_delta", delta)
	return f, nil
}

func (structuralReorganization) Propose(f Features) (Candidate, bool) {
	if f.Get("source_sentences")+f.Get("target_sentences") < 3 {
		return Candidate{}, false
	}
	crossing, delta := f.Get("crossing_ratio"), f.Get("sentence_count_delta")
	if crossing == 0 && delta < 0.34 {
		return Candidate{}, false
	}
	return propose(autoStructuralReorganization, math.Max(crossing, delta), f)
}

// summarization: strong length reduction of an aligned paragraph
type summarization struct{}

func (summarization) Code() model.StrategyCode { return model.CodeSummarization }
func (summarization) Pass() model.Pass         { return model.PassMacro }

func (summarization) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	src := len(textutil.Words(p.SourceText))
	tgt := len(textutil.Words(p.TargetText))
	lr := ratio(tgt, src)
	f.add("source_words", float64(src))
	f.add("target_words", float64(tgt))
	f.add("length_ratio", lr)
	f.add("reduction", clamp01(1-lr))
	return f, nil
}

func (summarization) Propose(f Features) (Candidate, bool) {
	reduction := f.Get("reduction")
	if f.Get("source_words") == 0 || reduction < 0.4 {
		return Candidate{}, false
	}
	return propose(autoSummarization, reduction, f)
}

// Package detect runs the strategy detector cascade over aligned pairs.
package detect

import (
	"github.com/ppiankov/intralign/internal/model"
)

// Pair is what a detector sees: one alignment pair plus the sentence pairs
// of its paragraph pair (for paragraph and sentence pairs)
type Pair struct {
	model.AlignmentPair
	Sentences []model.AlignmentPair
}

// Features are the raw measurements a detector extracted from a pair
type Features struct {
	Pair   Pair
	Values []model.Feature
	Custom []model.Feature // Additive confidence factors outside the profile
}

func (f *Features) add(name string, v float64) {
	f.Values = append(f.Values, model.Feature{Name: name, Value: v})
}

func (f *Features) custom(name string, v float64) {
	f.Custom = append(f.Custom, model.Feature{Name: name, Value: v})
}

// Get returns a feature value, or 0 when absent
func (f Features) Get(name string) float64 {
	for _, v := range f.Values {
		if v.Name == name {
			return v.Value
		}
	}
	return 0
}

// AutoCode is a strategy code the cascade is allowed to propose. Values
// exist only for automatic codes, so a Candidate for a human-only code
// cannot be built.
type AutoCode struct {
	code model.StrategyCode
}

// Code returns the strategy code
func (a AutoCode) Code() model.StrategyCode {
	return a.code
}

var (
	autoGlobalRewriting          = AutoCode{model.CodeGlobalRewriting}
	autoStructuralReorganization = AutoCode{model.CodeStructuralReorganization}
	autoSummarization            = AutoCode{model.CodeSummarization}
	autoLexicalSubstitution      = AutoCode{model.CodeLexicalSubstitution}
	autoSentenceFragmentation    = AutoCode{model.CodeSentenceFragmentation}
	autoVoiceChange              = AutoCode{model.CodeVoiceChange}
	autoReordering               = AutoCode{model.CodeReordering}
	autoFigurativeSimplification = AutoCode{model.CodeFigurativeSimplification}
	autoAnaphoraExplicitation    = AutoCode{model.CodeAnaphoraExplicitation}
	autoInsertion                = AutoCode{model.CodeInsertion}
	autoExplicitation            = AutoCode{model.CodeExplicitation}
	autoReduction                = AutoCode{model.CodeReduction}
)

// Candidate is a proposed strategy with its raw evidence strength in [0,1]
type Candidate struct {
	code       AutoCode
	RawScore   float64
	Features   Features
	SourceSpan model.Span
	TargetSpan model.Span
}

// Code returns the proposed strategy code
func (c Candidate) Code() model.StrategyCode {
	return c.code.code
}

func propose(code AutoCode, raw float64, f Features) (Candidate, bool) {
	return Candidate{
		code:       code,
		RawScore:   clamp01(raw),
		Features:   f,
		SourceSpan: f.Pair.SourceSpan,
		TargetSpan: f.Pair.TargetSpan,
	}, true
}

// Detector is one strategy's feature extractor and proposer
type Detector interface {
	Code() model.StrategyCode
	Pass() model.Pass
	ExtractFeatures(p Pair) (Features, error)
	Propose(f Features) (Candidate, bool)
}

// Detectors returns the full cascade in canonical order, guardrails included
func Detectors() []Detector {
	return []Detector{
		globalRewriting{},
		structuralReorganization{},
		summarization{},
		lexicalSubstitution{},
		sentenceFragmentation{},
		voiceChange{},
		reordering{},
		figurativeSimplification{},
		anaphoraExplicitation{},
		insertion{},
		explicitation{},
		reduction{},
		guardrail{code: model.CodeSelectiveSuppression},
		guardrail{code: model.CodeSemanticDeviation},
	}
}

// guardrail stands in for human-only codes. It never proposes.
type guardrail struct {
	code model.StrategyCode
}

func (g guardrail) Code() model.StrategyCode { return g.code }
func (g guardrail) Pass() model.Pass         { return model.PassNone }

func (g guardrail) ExtractFeatures(p Pair) (Features, error) {
	return Features{Pair: p}, nil
}

func (g guardrail) Propose(Features) (Candidate, bool) {
	return Candidate{}, false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}

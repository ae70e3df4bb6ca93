package model

import "fmt"

// StrategyCode identifies one of the fourteen simplification strategies
type StrategyCode string

const (
	CodeGlobalRewriting          StrategyCode = "RF+"
	CodeStructuralReorganization StrategyCode = "RD+"
	CodeSummarization            StrategyCode = "SU+"
	CodeLexicalSubstitution      StrategyCode = "SL+"
	CodeSentenceFragmentation    StrategyCode = "RP+"
	CodeVoiceChange              StrategyCode = "MV+"
	CodeReordering               StrategyCode = "DL+"
	CodeFigurativeSimplification StrategyCode = "MT+"
	CodeAnaphoraExplicitation    StrategyCode = "PRO+"
	CodeInsertion                StrategyCode = "IN+"
	CodeExplicitation            StrategyCode = "EXP+"
	CodeReduction                StrategyCode = "RE+"
	CodeSelectiveSuppression     StrategyCode = "OM+" // Human only
	CodeSemanticDeviation        StrategyCode = "AS+" // Human only
)

// Pass is the cascade stage that may propose a strategy
type Pass string

const (
	PassMacro Pass = "macro"
	PassMeso  Pass = "meso"
	PassMicro Pass = "micro"
	PassNone  Pass = "none"
)

// StrategyInfo describes a strategy code
type StrategyInfo struct {
	Code      StrategyCode
	Name      string
	Pass      Pass
	HumanOnly bool
}

var strategyTable = []StrategyInfo{
	{CodeGlobalRewriting, "global rewriting", PassMacro, false},
	{CodeStructuralReorganization, "structural reorganization", PassMacro, false},
	{CodeSummarization, "summarization", PassMacro, false},
	{CodeLexicalSubstitution, "lexical substitution", PassMeso, false},
	{CodeSentenceFragmentation, "sentence fragmentation", PassMeso, false},
	{CodeVoiceChange, "voice change", PassMeso, false},
	{CodeReordering, "reordering", PassMeso, false},
	{CodeFigurativeSimplification, "figurative simplification", PassMeso, false},
	{CodeAnaphoraExplicitation, "anaphora explicitation", PassMeso, false},
	{CodeInsertion, "insertion", PassMicro, false},
	{CodeExplicitation, "explicitation", PassMicro, false},
	{CodeReduction, "reduction", PassMicro, false},
	{CodeSelectiveSuppression, "selective suppression", PassNone, true},
	{CodeSemanticDeviation, "semantic deviation", PassNone, true},
}

var strategyIndex = func() map[StrategyCode]int {
	m := make(map[StrategyCode]int, len(strategyTable))
	for i, s := range strategyTable {
		m[s.Code] = i
	}
	return m
}()

// AllStrategies returns every strategy in canonical order
func AllStrategies() []StrategyInfo {
	out := make([]StrategyInfo, len(strategyTable))
	copy(out, strategyTable)
	return out
}

// Info returns the metadata for a code
func (c StrategyCode) Info() (StrategyInfo, bool) {
	i, ok := strategyIndex[c]
	if !ok {
		return StrategyInfo{}, false
	}
	return strategyTable[i], true
}

// Valid reports whether c is one of the enumerated codes
func (c StrategyCode) Valid() bool {
	_, ok := strategyIndex[c]
	return ok
}

// Name returns the human-readable strategy name
func (c StrategyCode) Name() string {
	if info, ok := c.Info(); ok {
		return info.Name
	}
	return string(c)
}

// HumanOnly reports whether the code can only be assigned by a person
func (c StrategyCode) HumanOnly() bool {
	info, ok := c.Info()
	return ok && info.HumanOnly
}

// Order returns the canonical position of the code, used for deterministic tie breaks
func (c StrategyCode) Order() int {
	if i, ok := strategyIndex[c]; ok {
		return i
	}
	return len(strategyTable)
}

// ParseStrategyCode accepts a code ("SL+") or a name ("lexical substitution")
func ParseStrategyCode(s string) (StrategyCode, error) {
	if StrategyCode(s).Valid() {
		return StrategyCode(s), nil
	}
	for _, info := range strategyTable {
		if info.Name == s {
			return info.Code, nil
		}
	}
	return "", fmt.Errorf("unknown strategy code %q", s)
}

// Quality is the categorical evidence quality fed into the confidence model
type Quality string

const (
	QualityWeak     Quality = "weak"
	QualityStandard Quality = "standard"
	QualityStrong   Quality = "strong"
)

// Feature is one named raw linguistic measurement
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Factor is one contribution to a confidence score
type Factor struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Explanation is the structured account of how a confidence was produced
type Explanation struct {
	Factors  []Factor `json:"factors"`
	Text     string   `json:"text,omitempty"`
	Formula  string   `json:"formula"`
	Quality  Quality  `json:"quality"`
	Multiply float64  `json:"semantic_multiplier"`
}

// Alternate is a losing candidate kept for the validator to swap in
type Alternate struct {
	Code       StrategyCode `json:"code"`
	Confidence float64      `json:"confidence"`
	RawScore   float64      `json:"raw_score"`
}

// DetectedStrategy is a scored strategy candidate attached to an alignment
type DetectedStrategy struct {
	ID          string       `json:"id"`
	Code        StrategyCode `json:"code"`
	Name        string       `json:"name"`
	Level       Level        `json:"level"`
	Confidence  float64      `json:"confidence"`
	RawScore    float64      `json:"raw_score"`
	Quality     Quality      `json:"quality"`
	Evidence    []Feature    `json:"evidence"`
	SourceSpan  Span         `json:"source_span"`
	TargetSpan  Span         `json:"target_span"`
	Explanation Explanation  `json:"explanation"`
	Alternates  []Alternate  `json:"alternates,omitempty"`
}

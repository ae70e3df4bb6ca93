package score

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/intralign/internal/model"
)

func TestScore_FormulaAndExplanation(t *testing.T) {
	s, err := NewScorer(nil, nil)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}

	r := s.Score(Input{
		Code:     model.CodeLexicalSubstitution,
		RawScore: 0.43,
		Features: []model.Feature{
			{Name: "novel_ratio", Value: 1.0 / 3},
			{Name: "dropped_ratio", Value: 2.0 / 3},
			{Name: "word_length_drop", Value: 0.35},
		},
		Similarity: 0.6,
	})

	// (0.35 + 0.1 + 0.07) × (1 + 0.5 × 0.1) = 0.52 × 1.05
	want := 0.52 * 1.05
	if math.Abs(r.Confidence-want) > 1e-9 {
		t.Errorf("expected confidence %f, got %f", want, r.Confidence)
	}
	if r.Quality != model.QualityStandard || !r.Passed {
		t.Errorf("expected standard passing result, got %s passed=%v", r.Quality, r.Passed)
	}

	// dropped_ratio has no weight in the profile and is not a factor
	for _, f := range r.Explanation.Factors {
		if f.Name == "dropped_ratio" {
			t.Error("unweighted feature should not appear as a factor")
		}
	}
	if r.Explanation.Factors[0].Name != "base" {
		t.Errorf("expected base to be the largest factor, got %s", r.Explanation.Factors[0].Name)
	}
	for i := 1; i < len(r.Explanation.Factors); i++ {
		prev, cur := r.Explanation.Factors[i-1], r.Explanation.Factors[i]
		if math.Abs(prev.Contribution) < math.Abs(cur.Contribution) {
			t.Errorf("factors not sorted by |contribution|: %s before %s", prev.Name, cur.Name)
		}
	}
	if !strings.Contains(r.Explanation.Text, "confidence") {
		t.Errorf("expected templated text, got %q", r.Explanation.Text)
	}
	if r.Explanation.Formula != Formula || math.Abs(r.Explanation.Multiply-1.05) > 1e-9 {
		t.Errorf("unexpected formula/multiplier: %+v", r.Explanation)
	}
}

func TestScore_QualityAdjustment(t *testing.T) {
	s, _ := NewScorer(nil, nil)
	in := Input{Code: model.CodeLexicalSubstitution, Similarity: 0.5}

	in.RawScore = 0.1
	weak := s.Score(in)
	in.RawScore = 0.3
	standard := s.Score(in)
	in.RawScore = 0.9
	strong := s.Score(in)

	if weak.Quality != model.QualityWeak || strong.Quality != model.QualityStrong {
		t.Fatalf("unexpected qualities %s/%s", weak.Quality, strong.Quality)
	}
	if math.Abs(standard.Confidence-weak.Confidence-0.1) > 1e-9 || math.Abs(strong.Confidence-standard.Confidence-0.1) > 1e-9 {
		t.Errorf("expected ±0.1 steps, got %f %f %f", weak.Confidence, standard.Confidence, strong.Confidence)
	}
}

func TestScore_SemanticMultiplierBounds(t *testing.T) {
	profiles := map[model.StrategyCode]Profile{
		model.CodeSummarization: {Base: 0.5, SemanticWeight: 1, Weights: map[string]float64{}},
	}
	s, _ := NewScorer(profiles, nil)

	low := s.Score(Input{Code: model.CodeSummarization, Similarity: -3})
	high := s.Score(Input{Code: model.CodeSummarization, Similarity: 7})

	if low.Explanation.Multiply != 0.5 || high.Explanation.Multiply != 1.5 {
		t.Errorf("expected multiplier within [0.5,1.5], got %f and %f", low.Explanation.Multiply, high.Explanation.Multiply)
	}
}

func TestScore_ClampsAndCustomFactors(t *testing.T) {
	s, _ := NewScorer(nil, nil)
	r := s.Score(Input{
		Code:       model.CodeVoiceChange,
		RawScore:   1,
		Features:   []model.Feature{{Name: "passive_delta", Value: 1}},
		Custom:     []model.Feature{{Name: "agent_phrase", Value: 0.9}},
		Similarity: 1,
	})
	if r.Confidence != 1 {
		t.Errorf("expected clamp to 1, got %f", r.Confidence)
	}
	found := false
	for _, f := range r.Explanation.Factors {
		if f.Name == "custom:agent_phrase" && f.Contribution == 0.9 {
			found = true
		}
	}
	if !found {
		t.Error("expected custom factor in explanation")
	}
}

func TestNewScorer_MinConfidenceOverride(t *testing.T) {
	s, err := NewScorer(nil, map[string]float64{"SL+": 0.9})
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	if s.MinConfidence(model.CodeLexicalSubstitution) != 0.9 {
		t.Errorf("expected override, got %f", s.MinConfidence(model.CodeLexicalSubstitution))
	}
	r := s.Score(Input{Code: model.CodeLexicalSubstitution, RawScore: 0.3, Similarity: 0.5})
	if r.Passed {
		t.Error("expected result below the overridden minimum to be filtered")
	}
	if DefaultProfiles()[model.CodeLexicalSubstitution].MinConfidence == 0.9 {
		t.Error("override leaked into the defaults")
	}

	if _, err := NewScorer(nil, map[string]float64{"XX+": 0.5}); !model.IsKind(err, model.KindValidation) {
		t.Errorf("expected validation error for unknown code, got %v", err)
	}
}

func TestLoadProfiles_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `SL+:
  base: 0.5
  weights:
    novel_ratio: 0.6
voice change:
  min_confidence: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}

	sl := profiles[model.CodeLexicalSubstitution]
	if sl.Base != 0.5 || sl.Weights["novel_ratio"] != 0.6 {
		t.Errorf("expected overridden values, got %+v", sl)
	}
	if sl.Weights["word_length_drop"] != 0.2 || sl.SemanticWeight != 0.5 {
		t.Errorf("expected untouched fields to keep defaults, got %+v", sl)
	}
	if profiles[model.CodeVoiceChange].MinConfidence != 0.7 {
		t.Errorf("expected name keys to resolve, got %+v", profiles[model.CodeVoiceChange])
	}
}

func TestLoadProfiles_Errors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	_ = os.WriteFile(unknown, []byte("ZZ+:\n  base: 1\n"), 0644)
	if _, err := LoadProfiles(unknown); err == nil {
		t.Error("expected error for unknown code")
	}

	badWeight := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(badWeight, []byte("SU+:\n  semantic_weight: 2\n"), 0644)
	if _, err := LoadProfiles(badWeight); err == nil {
		t.Error("expected error for semantic weight out of range")
	}

	if _, err := LoadProfiles(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEveryCodeHasAProfile(t *testing.T) {
	profiles := DefaultProfiles()
	for _, info := range model.AllStrategies() {
		if _, ok := profiles[info.Code]; !ok {
			t.Errorf("missing profile for %s", info.Code)
		}
	}
}

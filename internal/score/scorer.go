// Package score turns detector features into calibrated, explained confidences.
package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/intralign/internal/model"
)

// Formula documents the confidence computation in every explanation
const Formula = "clamp((base + Σ feature×weight + Σ custom) × semantic_multiplier + quality_adjustment, 0, 1)"

const qualityStep = 0.1

// Input is one candidate to score
type Input struct {
	Code       model.StrategyCode
	RawScore   float64
	Features   []model.Feature
	Custom     []model.Feature // Additive factors outside the profile weights
	Similarity float64
}

// Result is a scored candidate
type Result struct {
	Confidence  float64
	Quality     model.Quality
	Explanation model.Explanation
	Passed      bool // Confidence reaches the code's minimum
}

// Scorer applies strategy profiles
type Scorer struct {
	profiles map[model.StrategyCode]Profile
}

// NewScorer creates a scorer. minOverrides replaces the profile minimum per
// code string (e.g. "SL+": 0.4).
func NewScorer(profiles map[model.StrategyCode]Profile, minOverrides map[string]float64) (*Scorer, error) {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	merged := make(map[model.StrategyCode]Profile, len(profiles))
	for code, p := range profiles {
		merged[code] = p.clone()
	}

	for key, min := range minOverrides {
		code, err := model.ParseStrategyCode(key)
		if err != nil {
			return nil, model.Wrap(err, model.KindValidation, "score.NewScorer")
		}
		if min < 0 || min > 1 {
			return nil, model.E(model.KindValidation, "score.NewScorer", "min_confidence for %s must be within [0,1]", code)
		}
		p := merged[code]
		p.MinConfidence = min
		merged[code] = p
	}

	return &Scorer{profiles: merged}, nil
}

// Profile returns the profile used for code
func (s *Scorer) Profile(code model.StrategyCode) Profile {
	return s.profiles[code]
}

// MinConfidence returns the automatic-output threshold for code
func (s *Scorer) MinConfidence(code model.StrategyCode) float64 {
	return s.profiles[code].MinConfidence
}

// Score computes the confidence of one candidate and its explanation
func (s *Scorer) Score(in Input) Result {
	p := s.profiles[in.Code]

	factors := []model.Factor{{Name: "base", Value: p.Base, Weight: 1, Contribution: p.Base}}
	linear := p.Base

	for _, f := range in.Features {
		w, ok := p.Weights[f.Name]
		if !ok {
			continue
		}
		c := f.Value * w
		linear += c
		factors = append(factors, model.Factor{Name: f.Name, Value: f.Value, Weight: w, Contribution: c})
	}
	for _, f := range in.Custom {
		linear += f.Value
		factors = append(factors, model.Factor{Name: "custom:" + f.Name, Value: f.Value, Weight: 1, Contribution: f.Value})
	}

	sim := clamp(in.Similarity, 0, 1)
	multiplier := 1 + p.SemanticWeight*(sim-0.5)
	factors = append(factors, model.Factor{
		Name:         "semantic_multiplier",
		Value:        sim,
		Weight:       p.SemanticWeight,
		Contribution: linear * (multiplier - 1),
	})

	quality := QualityOf(in.RawScore, p)
	adj := qualityAdjustment(quality)
	factors = append(factors, model.Factor{
		Name:         "quality:" + string(quality),
		Value:        in.RawScore,
		Weight:       1,
		Contribution: adj,
	})

	confidence := clamp(linear*multiplier+adj, 0, 1)

	sort.SliceStable(factors, func(i, j int) bool {
		ai, aj := math.Abs(factors[i].Contribution), math.Abs(factors[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return factors[i].Name < factors[j].Name
	})

	explanation := model.Explanation{
		Factors:  factors,
		Formula:  Formula,
		Quality:  quality,
		Multiply: multiplier,
	}
	explanation.Text = render(in.Code, confidence, in.Features)

	return Result{
		Confidence:  confidence,
		Quality:     quality,
		Explanation: explanation,
		Passed:      confidence >= p.MinConfidence,
	}
}

// QualityOf buckets a raw score against the profile thresholds
func QualityOf(raw float64, p Profile) model.Quality {
	switch {
	case raw < p.Weak:
		return model.QualityWeak
	case p.Strong > 0 && raw >= p.Strong:
		return model.QualityStrong
	default:
		return model.QualityStandard
	}
}

func qualityAdjustment(q model.Quality) float64 {
	switch q {
	case model.QualityWeak:
		return -qualityStep
	case model.QualityStrong:
		return qualityStep
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func featureValue(features []model.Feature, name string) float64 {
	for _, f := range features {
		if f.Name == name {
			return f.Value
		}
	}
	return 0
}

// Describe is a one-line summary of a scored candidate for logs and CLI output
func Describe(code model.StrategyCode, r Result) string {
	return fmt.Sprintf("%s (%s) confidence %.2f, %s evidence", code, code.Name(), r.Confidence, r.Quality)
}

package score

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/intralign/internal/model"
)

// Profile is the numeric recipe for one strategy's confidence
type Profile struct {
	Base           float64            `yaml:"base"`
	SemanticWeight float64            `yaml:"semantic_weight"` // 0 ignores similarity, 1 maps it onto [0.5,1.5]
	Weights        map[string]float64 `yaml:"weights"`
	Weak           float64            `yaml:"weak"`   // raw score below this is weak evidence
	Strong         float64            `yaml:"strong"` // raw score at or above this is strong evidence
	MinConfidence  float64            `yaml:"min_confidence"`
}

func (p Profile) clone() Profile {
	w := make(map[string]float64, len(p.Weights))
	for k, v := range p.Weights {
		w[k] = v
	}
	p.Weights = w
	return p
}

// DefaultProfiles returns the documented starting values. They are tuned on
// small Portuguese samples and meant to be overridden per corpus.
func DefaultProfiles() map[model.StrategyCode]Profile {
	return map[model.StrategyCode]Profile{
		model.CodeGlobalRewriting: {
			Base: 0.20, SemanticWeight: 0.6, Weak: 0.7, Strong: 0.85, MinConfidence: 0.30,
			Weights: map[string]float64{"novelty": 0.40},
		},
		model.CodeStructuralReorganization: {
			Base: 0.25, SemanticWeight: 0.3, Weak: 0.3, Strong: 0.6, MinConfidence: 0.30,
			Weights: map[string]float64{"crossing_ratio": 0.40, "sentence_count_delta": 0.30},
		},
		model.CodeSummarization: {
			Base: 0.30, SemanticWeight: 0.4, Weak: 0.45, Strong: 0.65, MinConfidence: 0.35,
			Weights: map[string]float64{"reduction": 0.50},
		},
		model.CodeLexicalSubstitution: {
			Base: 0.35, SemanticWeight: 0.5, Weak: 0.2, Strong: 0.5, MinConfidence: 0.30,
			Weights: map[string]float64{"novel_ratio": 0.30, "word_length_drop": 0.20},
		},
		model.CodeSentenceFragmentation: {
			Base: 0.40, SemanticWeight: 0.4, Weak: 0.3, Strong: 0.6, MinConfidence: 0.35,
			Weights: map[string]float64{"fragment_count": 0.15, "length_ratio_drop": 0.30},
		},
		model.CodeVoiceChange: {
			Base: 0.45, SemanticWeight: 0.3, Weak: 0.5, Strong: 1.0, MinConfidence: 0.40,
			Weights: map[string]float64{"passive_delta": 0.30},
		},
		model.CodeReordering: {
			Base: 0.30, SemanticWeight: 0.4, Weak: 0.25, Strong: 0.6, MinConfidence: 0.30,
			Weights: map[string]float64{"inversion_ratio": 0.40},
		},
		model.CodeFigurativeSimplification: {
			Base: 0.40, SemanticWeight: 0.3, Weak: 0.5, Strong: 1.0, MinConfidence: 0.35,
			Weights: map[string]float64{"figurative_removed": 0.30},
		},
		model.CodeAnaphoraExplicitation: {
			Base: 0.35, SemanticWeight: 0.4, Weak: 0.3, Strong: 0.7, MinConfidence: 0.30,
			Weights: map[string]float64{"pronoun_resolution": 0.35},
		},
		model.CodeInsertion: {
			Base: 0.30, SemanticWeight: 0.0, Weak: 0.2, Strong: 0.6, MinConfidence: 0.25,
			Weights: map[string]float64{"inserted_share": 0.30},
		},
		model.CodeExplicitation: {
			Base: 0.40, SemanticWeight: 0.3, Weak: 0.3, Strong: 0.7, MinConfidence: 0.30,
			Weights: map[string]float64{"marker_count": 0.20},
		},
		model.CodeReduction: {
			Base: 0.30, SemanticWeight: 0.0, Weak: 0.2, Strong: 0.6, MinConfidence: 0.25,
			Weights: map[string]float64{"removed_share": 0.30},
		},
		model.CodeSelectiveSuppression: {Base: 0.5, Weights: map[string]float64{}},
		model.CodeSemanticDeviation:    {Base: 0.5, Weights: map[string]float64{}},
	}
}

// LoadProfiles reads a YAML file keyed by strategy code and overlays it on
// the defaults. Fields missing from the file keep their default value.
//
//	SL+:
//	  base: 0.4
//	  weights:
//	    novel_ratio: 0.35
func LoadProfiles(path string) (map[model.StrategyCode]Profile, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	for key, node := range raw {
		code, err := model.ParseStrategyCode(key)
		if err != nil {
			return nil, fmt.Errorf("profiles file %s: %w", path, err)
		}
		p := profiles[code].clone()
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", code, err)
		}
		if p.SemanticWeight < 0 || p.SemanticWeight > 1 {
			return nil, fmt.Errorf("profile %s: semantic_weight must be within [0,1], got %f", code, p.SemanticWeight)
		}
		profiles[code] = p
	}

	return profiles, nil
}

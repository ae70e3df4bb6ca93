package score

import (
	"fmt"

	"github.com/ppiankov/intralign/internal/model"
)

// templates render the explanation text. Codes without an entry get none.
var templates = map[model.StrategyCode]func(conf float64, f []model.Feature) string{
	model.CodeLexicalSubstitution: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("%.0f%% of the target's content words are new and %.0f%% of the source's were dropped; replacements are %.0f%% shorter (confidence %.2f).",
			featureValue(f, "novel_ratio")*100, featureValue(f, "dropped_ratio")*100, featureValue(f, "word_length_drop")*100, conf)
	},
	model.CodeSummarization: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("The target keeps %.0f%% of the source's words (confidence %.2f).",
			featureValue(f, "length_ratio")*100, conf)
	},
	model.CodeSentenceFragmentation: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("One source sentence maps to %.0f target sentences (confidence %.2f).",
			featureValue(f, "fragment_count")+1, conf)
	},
	model.CodeVoiceChange: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("Passive markers changed from %.0f to %.0f (confidence %.2f).",
			featureValue(f, "source_passive"), featureValue(f, "target_passive"), conf)
	},
	model.CodeReordering: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("%.0f%% of shared word pairs appear in inverted order (confidence %.2f).",
			featureValue(f, "inversion_ratio")*100, conf)
	},
	model.CodeInsertion: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("Target phrase of %.0f words has no source counterpart (confidence %.2f).",
			featureValue(f, "word_count"), conf)
	},
	model.CodeReduction: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("Source phrase of %.0f words was left out (confidence %.2f).",
			featureValue(f, "word_count"), conf)
	},
	model.CodeExplicitation: func(conf float64, f []model.Feature) string {
		return fmt.Sprintf("%.0f explanatory markers added (confidence %.2f).",
			featureValue(f, "marker_count"), conf)
	},
}

func render(code model.StrategyCode, conf float64, features []model.Feature) string {
	if t, ok := templates[code]; ok {
		return t(conf, features)
	}
	return ""
}

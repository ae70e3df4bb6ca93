package detect

import (
	"math"
	"strings"

	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/textutil"
)

// phraseShare turns a content word count into a [0,1] size score
func phraseShare(contentWords int) float64 {
	return math.Min(1, float64(contentWords)/6)
}

// insertion: a target phrase with no source counterpart
type insertion struct{}

func (insertion) Code() model.StrategyCode { return model.CodeInsertion }
func (insertion) Pass() model.Pass         { return model.PassMicro }

func (insertion) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	if p.HasSource() || !p.HasTarget() {
		return f, nil
	}
	content := len(textutil.ContentWords(p.TargetText))
	f.add("word_count", float64(len(textutil.Words(p.TargetText))))
	f.add("content_words", float64(content))
	f.add("inserted_share", phraseShare(content))
	if hasEvidencePrefix(p.Evidence, "fragment_of:") {
		f.add("fragment", 1)
	}
	return f, nil
}

func (insertion) Propose(f Features) (Candidate, bool) {
	if f.Get("content_words") == 0 || f.Get("fragment") == 1 {
		return Candidate{}, false
	}
	return propose(autoInsertion, f.Get("inserted_share"), f)
}

// explicitation: explanatory markers or parentheses added on the target side
type explicitation struct{}

func (explicitation) Code() model.StrategyCode { return model.CodeExplicitation }
func (explicitation) Pass() model.Pass         { return model.PassMicro }

func (explicitation) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	if !p.HasTarget() {
		return f, nil
	}
	added := countPhrases(p.TargetText, explanationMarkers) - countPhrases(p.SourceText, explanationMarkers)
	parens := strings.Count(p.TargetText, "(") - strings.Count(p.SourceText, "(")
	if parens > 0 {
		added += parens
		f.custom("parenthetical", 0.05)
	}
	if added < 0 {
		added = 0
	}
	f.add("marker_count", float64(added))
	return f, nil
}

func (explicitation) Propose(f Features) (Candidate, bool) {
	n := f.Get("marker_count")
	if n < 1 {
		return Candidate{}, false
	}
	return propose(autoExplicitation, 0.5+0.25*n, f)
}

// reduction: a source phrase left out of the target
type reduction struct{}

func (reduction) Code() model.StrategyCode { return model.CodeReduction }
func (reduction) Pass() model.Pass         { return model.PassMicro }

func (reduction) ExtractFeatures(p Pair) (Features, error) {
	f := Features{Pair: p}
	if !p.HasSource() || p.HasTarget() {
		return f, nil
	}
	content := len(textutil.ContentWords(p.SourceText))
	f.add("word_count", float64(len(textutil.Words(p.SourceText))))
	f.add("content_words", float64(content))
	f.add("removed_share", phraseShare(content))
	return f, nil
}

func (reduction) Propose(f Features) (Candidate, bool) {
	if f.Get("content_words") == 0 {
		return Candidate{}, false
	}
	return propose(autoReduction, f.Get("removed_share"), f)
}

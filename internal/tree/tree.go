// Package tree builds the hierarchical paragraph > sentence > phrase result
// trees with normalized salience and anchored strategies.
package tree

import (
	"github.com/ppiankov/intralign/internal/align"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/salience"
)

// Builder turns aligned units into result trees
type Builder struct {
	salience *salience.Provider
}

// NewBuilder creates a builder. A nil provider gets a default-sized one.
func NewBuilder(p *salience.Provider) *Builder {
	if p == nil {
		p = salience.NewProvider(salience.DefaultCacheSize)
	}
	return &Builder{salience: p}
}

// Build produces the source and target trees of an alignment. Salience is
// ranked over each full text with opts.
func (b *Builder) Build(a *align.Alignment, sourceText, targetText string, strategies []model.DetectedStrategy, opts salience.Options) (model.Tree, error) {
	srcWeights, err := b.salience.Weights(sourceText, opts)
	if err != nil {
		return model.Tree{}, err
	}
	tgtWeights, err := b.salience.Weights(targetText, opts)
	if err != nil {
		return model.Tree{}, err
	}

	t := model.Tree{
		Source: convert(a.Source, srcWeights),
		Target: convert(a.Target, tgtWeights),
	}

	for _, s := range strategies {
		if !s.SourceSpan.IsZero() {
			anchor(t.Source, s.SourceSpan, s.Level, s.ID)
		}
		if !s.TargetSpan.IsZero() {
			anchor(t.Target, s.TargetSpan, s.Level, s.ID)
		}
	}
	return t, nil
}

// convert copies units into TextUnits, normalizing salience against the
// siblings sharing the same parent
func convert(units []align.Unit, w salience.Weights) []model.TextUnit {
	if len(units) == 0 {
		return nil
	}

	means := make([]float64, len(units))
	max := 0.0
	for i, u := range units {
		means[i] = salience.MeanWeight(u.Text, w)
		if means[i] > max {
			max = means[i]
		}
	}

	out := make([]model.TextUnit, len(units))
	for i, u := range units {
		sal := 0.0
		if max > 0 {
			sal = means[i] / max
		}
		out[i] = model.TextUnit{
			Level:      u.Level,
			Text:       u.Text,
			Ordinal:    u.Ordinal,
			Span:       u.Span,
			Salience:   sal,
			AlignedTo:  u.AlignedTo,
			Similarity: u.Similarity,
			Children:   convert(u.Children, w),
		}
	}
	return out
}

// anchor records id on the deepest unit, no deeper than level, whose span
// contains span. It reports whether a unit took it.
func anchor(units []model.TextUnit, span model.Span, level model.Level, id string) bool {
	for i := range units {
		u := &units[i]
		if !u.Span.Contains(span) {
			continue
		}
		if depth(u.Level) < depth(level) && anchor(u.Children, span, level, id) {
			return true
		}
		u.Strategies = append(u.Strategies, id)
		return true
	}
	return false
}

func depth(l model.Level) int {
	switch l {
	case model.LevelParagraph:
		return 0
	case model.LevelSentence:
		return 1
	default:
		return 2
	}
}

// Flatten lists every unit in document order, parents before children.
// The returned units carry no children.
func Flatten(units []model.TextUnit) []model.TextUnit {
	var out []model.TextUnit
	var walk func([]model.TextUnit)
	walk = func(us []model.TextUnit) {
		for _, u := range us {
			children := u.Children
			u.Children = nil
			out = append(out, u)
			walk(children)
		}
	}
	walk(units)
	return out
}

// ToMap serializes a unit and its subtree into plain maps
func ToMap(u model.TextUnit) map[string]interface{} {
	m := map[string]interface{}{
		"level":      string(u.Level),
		"text":       u.Text,
		"ordinal":    u.Ordinal,
		"start":      u.Span.Start,
		"end":        u.Span.End,
		"salience":   u.Salience,
		"aligned_to": u.AlignedTo,
		"similarity": u.Similarity,
	}
	strategies := make([]interface{}, len(u.Strategies))
	for i, s := range u.Strategies {
		strategies[i] = s
	}
	m["strategies"] = strategies

	children := make([]interface{}, len(u.Children))
	for i, c := range u.Children {
		children[i] = ToMap(c)
	}
	m["children"] = children
	return m
}

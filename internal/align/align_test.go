package align

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/intralign/internal/embedding"
	"github.com/ppiankov/intralign/internal/model"
)

var defaults = ThresholdsFromConfig(model.DefaultConfig().Alignment)

// fakeProvider returns fixed vectors per text; unknown texts fail
type fakeProvider struct {
	vecs map[string][]float32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return nil, errors.New("no vector for " + text)
}

func TestAlign_ParaphraseExample(t *testing.T) {
	source := "O estudo demonstra que os resultados obtidos através da utilização de métodos estatísticos avançados confirmam a hipótese inicial."
	target := "O estudo mostra que os resultados confirmam a ideia inicial."

	engine := NewEngine(embedding.NewHashingProvider(0), defaults, nil)
	a, err := engine.Align(context.Background(), source, target, Options{})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	var para, sent *model.AlignmentPair
	for i := range a.Pairs {
		switch a.Pairs[i].Level {
		case model.LevelParagraph:
			para = &a.Pairs[i]
		case model.LevelSentence:
			sent = &a.Pairs[i]
		}
	}
	if para == nil || !para.Aligned {
		t.Fatalf("expected an aligned paragraph pair, got %+v", a.Pairs)
	}
	if para.Similarity < defaults.Paragraph {
		t.Errorf("expected similarity above %f, got %f", defaults.Paragraph, para.Similarity)
	}
	if para.Method != model.MethodEmbedding {
		t.Errorf("expected embedding method, got %s", para.Method)
	}
	if sent == nil || !sent.Aligned || sent.ParentSource != 0 || sent.ParentTarget != 0 {
		t.Errorf("expected aligned sentence pair under paragraph 0, got %+v", sent)
	}
	if a.Source[0].AlignedTo != 0 || a.Target[0].AlignedTo != 0 {
		t.Error("expected units to record their counterpart")
	}
}

func TestAlign_TieBreaksOnLowerSourceIndex(t *testing.T) {
	p := &fakeProvider{vecs: map[string][]float32{
		"Alpha.": {1, 0},
		"Beta.":  {1, 0},
		"Gamma.": {1, 0},
	}}

	a, err := NewEngine(p, defaults, nil).Align(context.Background(), "Alpha.\n\nBeta.", "Gamma.", Options{})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	paras := pairsAt(a, model.LevelParagraph)
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraph pairs, got %d", len(paras))
	}
	if !paras[0].Aligned || paras[0].SourceOrdinal != 0 || paras[0].TargetOrdinal != 0 {
		t.Errorf("expected source 0 to win the tie, got %+v", paras[0])
	}
	if paras[1].Aligned || paras[1].TargetOrdinal != -1 {
		t.Errorf("expected source 1 unaligned, got %+v", paras[1])
	}
}

func TestAlign_HigherSimilarityWinsOverOrder(t *testing.T) {
	p := &fakeProvider{vecs: map[string][]float32{
		"First.":  {1, 1},
		"Second.": {1, 0},
		"Target.": {1, 0},
	}}

	a, err := NewEngine(p, defaults, nil).Align(context.Background(), "First.\n\nSecond.", "Target.", Options{})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	paras := pairsAt(a, model.LevelParagraph)
	if paras[1].SourceOrdinal != 1 || !paras[1].Aligned {
		t.Errorf("expected the more similar source 1 to align, got %+v", paras)
	}
	if paras[0].Aligned {
		t.Error("expected source 0 to stay unaligned")
	}
	if len(paras[0].Evidence) == 0 || paras[0].Evidence[0] != "counterpart_taken:0.71" {
		t.Errorf("expected counterpart_taken evidence, got %v", paras[0].Evidence)
	}
}

func TestAlign_RecordsFragments(t *testing.T) {
	p := &fakeProvider{vecs: map[string][]float32{
		"Alpha one.":             {1, 1},
		"Alpha part. Beta part.": {1, 1},
		"Alpha part.":            {1, 0},    // 0.71 with the source sentence
		"Beta part.":             {1, -0.4}, // 0.39: below 0.45 but above 0.75 × 0.45
	}}

	a, err := NewEngine(p, defaults, nil).Align(context.Background(), "Alpha one.", "Alpha part. Beta part.", Options{})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	sents := pairsAt(a, model.LevelSentence)
	if len(sents) != 2 {
		t.Fatalf("expected aligned pair plus unaligned target, got %+v", sents)
	}
	if !sents[0].Aligned || sents[0].TargetOrdinal != 0 {
		t.Errorf("expected source sentence aligned to target 0, got %+v", sents[0])
	}
	if len(sents[0].Fragments) != 1 || sents[0].Fragments[0] != 1 {
		t.Errorf("expected target 1 recorded as fragment, got %v", sents[0].Fragments)
	}
	if sents[1].Aligned || sents[1].SourceOrdinal != -1 || sents[1].TargetOrdinal != 1 {
		t.Errorf("expected target-only pair for the fragment, got %+v", sents[1])
	}
	if len(sents[1].Evidence) != 1 || sents[1].Evidence[0] != "fragment_of:0" {
		t.Errorf("expected fragment_of evidence, got %v", sents[1].Evidence)
	}
}

func TestAlign_EmbeddingFailureIsIsolated(t *testing.T) {
	p := &fakeProvider{vecs: map[string][]float32{
		"Good one.": {1, 0},
	}}

	a, err := NewEngine(p, defaults, nil).Align(context.Background(), "Good one.\n\nBroken paragraph.", "Good one.", Options{})
	if err != nil {
		t.Fatalf("Align should not fail on a unit error: %v", err)
	}

	paras := pairsAt(a, model.LevelParagraph)
	if !paras[0].Aligned {
		t.Error("expected healthy paragraph to align")
	}
	if paras[1].Aligned || len(paras[1].Evidence) == 0 || !strings.HasPrefix(paras[1].Evidence[0], "embedding_error: ") {
		t.Errorf("expected embedding_error evidence, got %+v", paras[1])
	}
	if len(a.Warnings) != 1 || !strings.HasPrefix(a.Warnings[0], string(model.KindAlignmentFailure)) {
		t.Errorf("expected one alignment warning, got %v", a.Warnings)
	}
}

func TestAlign_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(embedding.NewHashingProvider(16), defaults, nil).Align(ctx, "Um.", "Dois.", Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAlign_MicroSpans(t *testing.T) {
	source := "O relatório, publicado ontem, confirma a hipótese."
	target := "O relatório confirma a hipótese."

	engine := NewEngine(embedding.NewHashingProvider(0), defaults, nil)

	base, _ := engine.Align(context.Background(), source, target, Options{})
	if n := len(pairsAt(base, model.LevelPhrase)); n != 0 {
		t.Errorf("expected no phrase pairs without micro spans, got %d", n)
	}

	micro, err := engine.Align(context.Background(), source, target, Options{IncludeMicroSpans: true})
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	phrases := pairsAt(micro, model.LevelPhrase)
	if len(phrases) == 0 {
		t.Fatal("expected phrase pairs with micro spans")
	}
	sourceOnly := 0
	for _, p := range phrases {
		if p.HasSource() && !p.HasTarget() {
			sourceOnly++
		}
	}
	if sourceOnly == 0 {
		t.Errorf("expected the dropped clause as a source-only phrase, got %+v", phrases)
	}
	if len(micro.Source[0].Children[0].Children) != 3 {
		t.Errorf("expected 3 source phrases, got %d", len(micro.Source[0].Children[0].Children))
	}
}

func TestSegment_OffsetsIntoFullText(t *testing.T) {
	text := "Primeiro parágrafo.\n\nSegundo, com vírgula. Fim."
	units := Segment(text, true)
	runes := []rune(text)

	var walk func(us []Unit)
	walk = func(us []Unit) {
		for _, u := range us {
			if got := string(runes[u.Span.Start:u.Span.End]); got != u.Text {
				t.Errorf("%s %d: span text %q != %q", u.Level, u.Ordinal, got, u.Text)
			}
			if u.AlignedTo != -1 {
				t.Errorf("expected fresh unit to be unaligned")
			}
			walk(u.Children)
		}
	}
	walk(units)
}

func pairsAt(a *Alignment, level model.Level) []model.AlignmentPair {
	var out []model.AlignmentPair
	for _, p := range a.Pairs {
		if p.Level == level {
			out = append(out, p)
		}
	}
	return out
}

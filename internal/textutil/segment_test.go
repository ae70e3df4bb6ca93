package textutil

import (
	"strings"
	"testing"
)

func TestParagraphs_BlankLineBoundaries(t *testing.T) {
	text := "  Primeiro parágrafo.\nContinua aqui.\n\n\n   \nSegundo parágrafo.\n"

	paras := Paragraphs(text)
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %+v", len(paras), paras)
	}

	runes := []rune(text)
	for i, p := range paras {
		if p.Ordinal != i {
			t.Errorf("paragraph %d has ordinal %d", i, p.Ordinal)
		}
		if got := string(runes[p.Span.Start:p.Span.End]); got != p.Text {
			t.Errorf("span text mismatch: %q vs %q", got, p.Text)
		}
	}
	if !strings.HasPrefix(paras[0].Text, "Primeiro") || !strings.HasSuffix(paras[0].Text, "aqui.") {
		t.Errorf("unexpected first paragraph: %q", paras[0].Text)
	}
}

func TestParagraphs_Empty(t *testing.T) {
	if got := Paragraphs("\n\n   \n"); len(got) != 0 {
		t.Errorf("expected no paragraphs, got %v", got)
	}
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic",
			text: "O estudo terminou. Os resultados são bons! Será?",
			want: []string{"O estudo terminou.", "Os resultados são bons!", "Será?"},
		},
		{
			name: "abbreviation",
			text: "O Dr. Silva chegou. Ele saiu.",
			want: []string{"O Dr. Silva chegou.", "Ele saiu."},
		},
		{
			name: "initial",
			text: "Escrito por J. Souza em 2020. Fim.",
			want: []string{"Escrito por J. Souza em 2020.", "Fim."},
		},
		{
			name: "decimal",
			text: "O valor é 3.5 mil. Subiu.",
			want: []string{"O valor é 3.5 mil.", "Subiu."},
		},
		{
			name: "closing quote",
			text: `Ele disse "basta." Depois saiu.`,
			want: []string{`Ele disse "basta."`, "Depois saiu."},
		},
		{
			name: "no terminator",
			text: "Sem ponto final",
			want: []string{"Sem ponto final"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sentences(tt.text, 0)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d sentences, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i].Text != tt.want[i] {
					t.Errorf("sentence %d: expected %q, got %q", i, tt.want[i], got[i].Text)
				}
			}
		})
	}
}

func TestSentences_OffsetsAreAbsolute(t *testing.T) {
	doc := "Intro.\n\nO estudo terminou. Os resultados são bons."
	paras := Paragraphs(doc)
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paras))
	}

	runes := []rune(doc)
	for _, s := range Sentences(paras[1].Text, paras[1].Span.Start) {
		if got := string(runes[s.Span.Start:s.Span.End]); got != s.Text {
			t.Errorf("absolute span mismatch: %q vs %q", got, s.Text)
		}
	}
}

func TestPhrases(t *testing.T) {
	text := "Os resultados, obtidos com cuidado, confirmam a ideia (ou seja, a hipótese)."
	got := Phrases(text, 10)

	want := []string{"Os resultados", "obtidos com cuidado", "confirmam a ideia", "(ou seja", "a hipótese)"}
	if len(got) != len(want) {
		t.Fatalf("expected %d phrases, got %d: %+v", len(want), len(got), got)
	}
	runes := []rune(text)
	for i := range got {
		if got[i].Text != want[i] {
			t.Errorf("phrase %d: expected %q, got %q", i, want[i], got[i].Text)
		}
		if s := string(runes[got[i].Span.Start-10 : got[i].Span.End-10]); s != got[i].Text {
			t.Errorf("phrase %d span mismatch: %q", i, s)
		}
	}
}

func TestWordsAndFold(t *testing.T) {
	words := Words("A Utilização de métodos bem-estar, d'água!")
	want := []string{"a", "utilizacao", "de", "metodos", "bem-estar", "d'agua"}
	if strings.Join(words, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, words)
	}

	content := ContentWords("O estudo mostra que os resultados confirmam a ideia inicial.")
	if strings.Join(content, " ") != "estudo mostra resultados confirmam ideia inicial" {
		t.Errorf("unexpected content words: %v", content)
	}
}

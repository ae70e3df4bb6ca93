package detect

import (
	"strings"

	"github.com/ppiankov/intralign/internal/textutil"
)

// Folded Portuguese and English word lists used by the heuristics

var passiveAuxiliaries = wordSet(
	"foi", "foram", "sao", "era", "eram", "sera", "serao", "sido", "seja", "sejam", "fosse", "fossem", "estao",
	"is", "are", "was", "were", "be", "been", "being",
)

// Subject-like pronouns that usually stand for an earlier noun phrase
var anaphoricPronouns = wordSet(
	"ele", "ela", "eles", "elas", "isso", "isto", "aquilo", "lhe", "lhes",
	"he", "she", "it", "they", "them", "him",
)

var figurativeMarkers = []string{
	"como se", "tal como", "feito um", "feito uma", "pedra no sapato", "chover no molhado",
	"de mao beijada", "ao pe da letra", "tempestade em copo", "bola de neve", "faca de dois gumes",
	"ponta do iceberg", "luz no fim do tunel", "carta branca", "sangue frio",
	"as if", "like a", "piece of cake", "break the ice", "tip of the iceberg", "once in a blue moon",
	"double-edged sword", "snowball effect", "light at the end of the tunnel",
}

var explanationMarkers = []string{
	"ou seja", "isto e", "quer dizer", "por exemplo", "em outras palavras", "ou melhor", "chamado", "chamada",
	"that is", "in other words", "for example", "i.e", "e.g", "which means", "called",
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// countPhrases counts occurrences of each marker phrase over folded words
func countPhrases(text string, markers []string) int {
	joined := " " + strings.Join(textutil.Words(text), " ") + " "
	n := 0
	for _, m := range markers {
		needle := " " + strings.Join(textutil.Words(m), " ") + " "
		n += strings.Count(joined, needle)
	}
	return n
}

// isParticiple is a crude past participle test for Portuguese and English
func isParticiple(w string) bool {
	if len(w) < 4 {
		return false
	}
	for _, suf := range []string{"ado", "ada", "ados", "adas", "ido", "ida", "idos", "idas", "ed", "en"} {
		if strings.HasSuffix(w, suf) {
			return true
		}
	}
	return false
}

// countPassives counts auxiliary + participle constructions, allowing one
// adverb in between ("foi rapidamente aprovado")
func countPassives(text string) int {
	words := textutil.Words(text)
	n := 0
	for i, w := range words {
		if !passiveAuxiliaries[w] {
			continue
		}
		for j := i + 1; j < len(words) && j <= i+2; j++ {
			if isParticiple(words[j]) {
				n++
				break
			}
		}
	}
	return n
}

func countWords(words []string, set map[string]bool) int {
	n := 0
	for _, w := range words {
		if set[w] {
			n++
		}
	}
	return n
}

package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the NFC form of s
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Fold lowercases s and strips combining marks ("Utilização" -> "utilizacao")
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Words returns folded word tokens in order. Hyphens and apostrophes inside a
// word are kept ("bem-estar", "d'água").
func Words(text string) []string {
	text = Normalize(text)
	var words []string
	var cur strings.Builder

	rs := []rune(text)
	for i, r := range rs {
		inner := (r == '-' || r == '\'' || r == '’') && cur.Len() > 0 &&
			i+1 < len(rs) && unicode.IsLetter(rs[i+1])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || inner {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			words = append(words, Fold(cur.String()))
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		words = append(words, Fold(cur.String()))
	}

	return words
}

// ContentWords returns Words minus stopwords
func ContentWords(text string) []string {
	words := Words(text)
	out := words[:0:0]
	for _, w := range words {
		if !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

// WordSet returns the set of distinct words
func WordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// RuneLen returns the length of s in runes
func RuneLen(s string) int {
	return len([]rune(s))
}

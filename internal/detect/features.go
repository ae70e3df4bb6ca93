package detect

import (
	"github.com/ppiankov/intralign/internal/textutil"
)

// lexicalDiff compares the content vocabularies of two texts
type lexicalDiff struct {
	source, target    []string
	novel, dropped    []string
	shared            int
	sourceSet, tgtSet map[string]bool
}

func diffContent(source, target string) lexicalDiff {
	d := lexicalDiff{
		source: textutil.ContentWords(source),
		target: textutil.ContentWords(target),
	}
	d.sourceSet = textutil.WordSet(d.source)
	d.tgtSet = textutil.WordSet(d.target)

	seen := make(map[string]bool)
	for _, w := range d.target {
		if !d.sourceSet[w] && !seen[w] {
			d.novel = append(d.novel, w)
		}
		seen[w] = true
	}
	seen = make(map[string]bool)
	for _, w := range d.source {
		if seen[w] {
			continue
		}
		seen[w] = true
		if d.tgtSet[w] {
			d.shared++
		} else {
			d.dropped = append(d.dropped, w)
		}
	}
	return d
}

// novelRatio is the share of distinct target content words absent from the source
func (d lexicalDiff) novelRatio() float64 {
	if len(d.tgtSet) == 0 {
		return 0
	}
	return float64(len(d.novel)) / float64(len(d.tgtSet))
}

// droppedRatio is the share of distinct source content words absent from the target
func (d lexicalDiff) droppedRatio() float64 {
	if len(d.sourceSet) == 0 {
		return 0
	}
	return float64(len(d.dropped)) / float64(len(d.sourceSet))
}

// overlap is the Jaccard index of the two vocabularies
func (d lexicalDiff) overlap() float64 {
	union := len(d.sourceSet) + len(d.tgtSet) - d.shared
	if union == 0 {
		return 1
	}
	return float64(d.shared) / float64(union)
}

func meanRuneLen(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	total := 0
	for _, w := range words {
		total += textutil.RuneLen(w)
	}
	return float64(total) / float64(len(words))
}

// inversions counts pairs of shared words whose relative order differs
// between the two word sequences, over all shared pairs
func inversions(source, target []string) (inverted, total int) {
	tp := make(map[string]int)
	for i, w := range target {
		if _, ok := tp[w]; !ok {
			tp[w] = i
		}
	}

	var order []int
	seen := make(map[string]bool)
	for _, w := range source {
		if seen[w] {
			continue
		}
		seen[w] = true
		if p, ok := tp[w]; ok {
			order = append(order, p)
		}
	}

	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			total++
			if order[i] > order[j] {
				inverted++
			}
		}
	}
	return inverted, total
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func hasEvidencePrefix(evidence []string, prefix string) bool {
	for _, e := range evidence {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

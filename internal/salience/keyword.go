package salience

import (
	"github.com/ppiankov/intralign/internal/textutil"
)

// keywordWeights scores words RAKE style: candidate keyword runs are the
// stretches between stopwords and punctuation; a word scores its degree
// (total length of the runs it appears in) over its frequency, normalized
// by the best word.
func keywordWeights(text string) Weights {
	degree := make(map[string]int)
	freq := make(map[string]int)

	for _, run := range candidateRuns(text) {
		for _, word := range run {
			degree[word] += len(run)
			freq[word]++
		}
	}

	w := make(Weights, len(freq))
	best := 0.0
	for word, f := range freq {
		s := float64(degree[word]) / float64(f)
		w[word] = s
		if s > best {
			best = s
		}
	}
	if best > 0 {
		for word := range w {
			w[word] /= best
		}
	}
	return w
}

// candidateRuns splits text at punctuation (via phrase segmentation) and at
// stopwords
func candidateRuns(text string) [][]string {
	var runs [][]string
	for _, para := range textutil.Paragraphs(text) {
		for _, sent := range textutil.Sentences(para.Text, 0) {
			for _, phrase := range textutil.Phrases(sent.Text, 0) {
				var cur []string
				for _, word := range textutil.Words(phrase.Text) {
					if textutil.IsStopword(word) {
						if len(cur) > 0 {
							runs = append(runs, cur)
							cur = nil
						}
						continue
					}
					cur = append(cur, word)
				}
				if len(cur) > 0 {
					runs = append(runs, cur)
				}
			}
		}
	}
	return runs
}

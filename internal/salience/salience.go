// Package salience ranks the lexical importance of words within a text.
package salience

import (
	"github.com/ppiankov/intralign/internal/cache"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/textutil"
)

// Ranking methods
const (
	MethodFrequency = "frequency"
	MethodKeyword   = "keyword"
)

// DefaultCacheSize bounds the number of cached (method, text) rankings
const DefaultCacheSize = 256

// Options select how a ranking is computed. They are passed per call and
// never stored on the Provider.
type Options struct {
	Method string
}

// Weights maps a folded word to its salience in [0,1]. Stopwords are absent
// and therefore weigh 0. Returned maps are shared; treat them as read-only.
type Weights map[string]float64

// Weight returns the salience of a folded word
func (w Weights) Weight(word string) float64 {
	return w[word]
}

// Provider computes word weights and caches them per (method, text)
type Provider struct {
	cache *cache.BoundedCache[Weights]
}

// NewProvider creates a provider whose cache holds at most size rankings
func NewProvider(size int) *Provider {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Provider{cache: cache.NewBoundedCache[Weights](size)}
}

// ValidMethod reports whether m names a ranking method
func ValidMethod(m string) bool {
	return m == MethodFrequency || m == MethodKeyword
}

// Weights ranks the words of text with the method in opts. An empty method
// means frequency.
func (p *Provider) Weights(text string, opts Options) (Weights, error) {
	method := opts.Method
	if method == "" {
		method = MethodFrequency
	}
	if !ValidMethod(method) {
		return nil, model.E(model.KindValidation, "salience.Weights", "unknown salience method %q", method)
	}

	key := cache.CacheKey(method, text)
	if w, ok := p.cache.Get(key); ok {
		return w, nil
	}

	var w Weights
	switch method {
	case MethodKeyword:
		w = keywordWeights(text)
	default:
		w = frequencyWeights(text)
	}

	p.cache.Set(key, w)
	return w, nil
}

// CacheLen returns the number of cached rankings
func (p *Provider) CacheLen() int {
	return p.cache.Len()
}

// MeanWeight is the average weight over every word token of unit, so
// stopword-heavy units score lower. A unit without words scores 0.
func MeanWeight(unit string, w Weights) float64 {
	words := textutil.Words(unit)
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, word := range words {
		sum += w[word]
	}
	return sum / float64(len(words))
}

// frequencyWeights is term frequency over content words divided by the
// highest term frequency
func frequencyWeights(text string) Weights {
	counts := make(map[string]int)
	maxCount := 0
	for _, word := range textutil.ContentWords(text) {
		counts[word]++
		if counts[word] > maxCount {
			maxCount = counts[word]
		}
	}

	w := make(Weights, len(counts))
	for word, c := range counts {
		w[word] = float64(c) / float64(maxCount)
	}
	return w
}

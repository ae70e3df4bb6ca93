// Package textutil splits texts into discourse units and tokens.
// All offsets are rune offsets into the text handed to the top-level call.
package textutil

import (
	"strings"
	"unicode"

	"github.com/ppiankov/intralign/internal/model"
)

// abbreviations never end a sentence when followed by a period
var abbreviations = map[string]bool{
	"sr": true, "sra": true, "srs": true, "dr": true, "dra": true, "prof": true, "profa": true,
	"ex": true, "p.ex": true, "pág": true, "pag": true, "vol": true, "cap": true, "av": true,
	"mr": true, "mrs": true, "ms": true, "st": true, "vs": true, "e.g": true, "i.e": true,
	"fig": true, "art": true, "nº": true,
}

// Paragraphs splits text on blank-line boundaries
func Paragraphs(text string) []model.Segment {
	runes := []rune(text)
	var segments []model.Segment

	curStart, curEnd := -1, -1
	flush := func() {
		if curStart >= 0 && curEnd > curStart {
			segments = append(segments, model.Segment{
				Text:    string(runes[curStart:curEnd]),
				Ordinal: len(segments),
				Span:    model.Span{Start: curStart, End: curEnd},
			})
		}
		curStart, curEnd = -1, -1
	}

	lineStart := 0
	for lineStart <= len(runes) {
		lineEnd := lineStart
		for lineEnd < len(runes) && runes[lineEnd] != '\n' {
			lineEnd++
		}

		lo, hi := lineStart, lineEnd
		for lo < hi && unicode.IsSpace(runes[lo]) {
			lo++
		}
		for hi > lo && unicode.IsSpace(runes[hi-1]) {
			hi--
		}

		if lo == hi {
			flush()
		} else {
			if curStart < 0 {
				curStart = lo
			}
			curEnd = hi
		}

		if lineEnd >= len(runes) {
			break
		}
		lineStart = lineEnd + 1
	}
	flush()

	return segments
}

// Sentences splits a unit into sentences on terminal punctuation. base is the
// offset of text within the full document.
func Sentences(text string, base int) []model.Segment {
	runes := []rune(text)
	return splitRunes(runes, base, func(i int) bool {
		r := runes[i]
		if !isTerminator(r) {
			return false
		}
		// The last terminator of a run ("?!", "...") closes the sentence
		if i+1 < len(runes) && isTerminator(runes[i+1]) {
			return false
		}
		j := i + 1
		for j < len(runes) && isCloser(runes[j]) {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			return false
		}
		if r == '.' && isAbbreviation(runes, i) {
			return false
		}
		return true
	}, closersAfter(runes))
}

// Phrases splits a sentence into clause-like spans on commas, semicolons,
// colons, parentheses and dashes.
func Phrases(text string, base int) []model.Segment {
	runes := []rune(text)
	var segments []model.Segment

	start := 0
	emit := func(end int) {
		lo, hi := start, end
		for lo < hi && (unicode.IsSpace(runes[lo]) || isPhraseTrim(runes[lo])) {
			lo++
		}
		for hi > lo && (unicode.IsSpace(runes[hi-1]) || isPhraseTrim(runes[hi-1])) {
			hi--
		}
		if hi > lo && hasWord(runes[lo:hi]) {
			segments = append(segments, model.Segment{
				Text:    string(runes[lo:hi]),
				Ordinal: len(segments),
				Span:    model.Span{Start: base + lo, End: base + hi},
			})
		}
	}

	for i, r := range runes {
		switch {
		case r == ',' || r == ';' || r == ':' || r == ')':
			emit(i + 1)
			start = i + 1
		case r == '(':
			emit(i)
			start = i
		case (r == '–' || r == '—') && i > 0 && unicode.IsSpace(runes[i-1]):
			emit(i)
			start = i + 1
		}
	}
	emit(len(runes))

	return segments
}

// splitRunes cuts runes after every index for which boundary is true,
// extending the cut over trailing closers.
func splitRunes(runes []rune, base int, boundary func(int) bool, closers func(int) int) []model.Segment {
	var segments []model.Segment
	start := 0

	emit := func(end int) {
		lo, hi := start, end
		for lo < hi && unicode.IsSpace(runes[lo]) {
			lo++
		}
		for hi > lo && unicode.IsSpace(runes[hi-1]) {
			hi--
		}
		if hi > lo && hasWord(runes[lo:hi]) {
			segments = append(segments, model.Segment{
				Text:    string(runes[lo:hi]),
				Ordinal: len(segments),
				Span:    model.Span{Start: base + lo, End: base + hi},
			})
		}
	}

	for i := 0; i < len(runes); i++ {
		if boundary(i) {
			end := closers(i + 1)
			emit(end)
			start = end
			i = end - 1
		}
	}
	if start < len(runes) {
		emit(len(runes))
	}

	return segments
}

func closersAfter(runes []rune) func(int) int {
	return func(i int) int {
		for i < len(runes) && isCloser(runes[i]) {
			i++
		}
		return i
	}
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}

func isPhraseTrim(r rune) bool {
	switch r {
	case ',', ';', ':', '–', '—':
		return true
	}
	return false
}

func hasWord(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// isAbbreviation reports whether the period at i closes a known abbreviation
// or a single initial ("J. Silva").
func isAbbreviation(runes []rune, i int) bool {
	j := i
	for j > 0 && (unicode.IsLetter(runes[j-1]) || runes[j-1] == '.' || runes[j-1] == 'º') {
		j--
	}
	word := strings.ToLower(strings.TrimSuffix(string(runes[j:i]), "."))
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 && unicode.IsUpper(runes[j]) {
		return true
	}
	return abbreviations[word]
}

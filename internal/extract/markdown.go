package extract

import (
	"regexp"
	"strings"
)

var (
	mdFence     = regexp.MustCompile("^\\s*(```|~~~)")
	mdHeading   = regexp.MustCompile(`^\s{0,3}#{1,6}\s+`)
	mdQuote     = regexp.MustCompile(`^\s{0,3}>\s?`)
	mdBullet    = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	mdRule      = regexp.MustCompile(`^\s{0,3}([-*_]\s*){3,}$`)
	mdImage     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink      = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasis  = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)|(\*|_)([^*_\s][^*_]*?)(\*|_)`)
	mdCode      = regexp.MustCompile("`([^`]*)`")
	mdTableRule = regexp.MustCompile(`^\s*\|?\s*:?-{3,}`)
)

// MarkdownExtractor strips Markdown markup and keeps the prose. Code blocks
// are dropped with a warning.
type MarkdownExtractor struct{}

// Name returns the extractor name
func (MarkdownExtractor) Name() string { return "markdown" }

// Extract returns the prose of a Markdown document
func (MarkdownExtractor) Extract(data []byte) (Result, error) {
	plain, _ := PlainExtractor{}.Extract(data)

	var res Result
	var out []string
	inFence := false
	dropped := 0

	for _, line := range strings.Split(plain.Text, "\n") {
		if mdFence.MatchString(line) {
			inFence = !inFence
			if inFence {
				dropped++
			}
			continue
		}
		if inFence || mdRule.MatchString(line) || mdTableRule.MatchString(line) {
			continue
		}

		line = mdHeading.ReplaceAllString(line, "")
		line = mdQuote.ReplaceAllString(line, "")
		line = mdBullet.ReplaceAllString(line, "")
		line = mdImage.ReplaceAllString(line, "$1")
		line = mdLink.ReplaceAllString(line, "$1")
		line = mdEmphasis.ReplaceAllString(line, "$2$5")
		line = mdCode.ReplaceAllString(line, "$1")
		line = strings.Trim(line, "| ")
		out = append(out, line)
	}

	if dropped > 0 {
		res.Warnings = append(res.Warnings, pluralize(dropped, "code block")+" dropped")
	}
	res.Text = strings.Join(out, "\n")
	return res, nil
}

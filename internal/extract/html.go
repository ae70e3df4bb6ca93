package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// skipped elements never contribute visible text
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "nav": true, "footer": true, "svg": true, "iframe": true,
}

// blocks end a paragraph
var blocks = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "pre": true, "table": true, "tr": true,
	"ul": true, "ol": true, "dl": true, "dd": true, "dt": true, "figcaption": true,
	"header": true, "aside": true,
}

// HTMLExtractor returns the visible text of an HTML page, one paragraph per
// block element
type HTMLExtractor struct{}

// Name returns the extractor name
func (HTMLExtractor) Name() string { return "html" }

// Extract parses data and collects its visible text
func (HTMLExtractor) Extract(data []byte) (Result, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	var res Result
	var paras []string
	var cur strings.Builder
	skippedCount := 0

	flush := func() {
		if text := strings.Join(strings.Fields(cur.String()), " "); text != "" {
			paras = append(paras, text)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.Data] {
				if n.Data == "script" || n.Data == "iframe" {
					skippedCount++
				}
				return
			}
			if n.Data == "br" {
				cur.WriteString(" ")
				return
			}
			if blocks[n.Data] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()

	if skippedCount > 0 {
		res.Warnings = append(res.Warnings, pluralize(skippedCount, "script or frame element")+" ignored")
	}
	res.Text = strings.Join(paras, "\n\n")
	return res, nil
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

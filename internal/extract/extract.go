// Package extract turns uploaded or fetched documents into plain text for
// analysis. Binary formats are left to external tools.
package extract

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/intralign/internal/model"
)

// Result is the text of one document plus anything lost on the way
type Result struct {
	Text     string   `json:"text"`
	Warnings []string `json:"warnings,omitempty"`
}

// Extractor converts the raw bytes of one document format
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// Extract returns the visible text of data
	Extract(data []byte) (Result, error)
}

// unsupported lists formats that need an external converter
var unsupported = map[string]bool{
	".pdf": true, ".docx": true, ".doc": true, ".odt": true, ".rtf": true,
}

// Registry maps file extensions to extractors
type Registry struct {
	byExt    map[string]Extractor
	fallback Extractor
	maxBytes int
}

// NewRegistry creates a registry with the built-in extractors. maxBytes <= 0
// disables the size check.
func NewRegistry(maxBytes int) *Registry {
	r := &Registry{byExt: make(map[string]Extractor), maxBytes: maxBytes}

	plain := PlainExtractor{}
	r.Register(plain, ".txt", ".text")
	r.Register(MarkdownExtractor{}, ".md", ".markdown")
	r.Register(HTMLExtractor{}, ".html", ".htm", ".xhtml")
	r.fallback = plain

	return r
}

// Register binds an extractor to one or more extensions
func (r *Registry) Register(e Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// For returns the extractor for a file name. Names without a known
// extension are read as plain text.
func (r *Registry) For(name string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if unsupported[ext] {
		return nil, model.E(model.KindValidation, "extract.For", "unsupported format %s: convert %s to text first", ext, filepath.Base(name))
	}
	if e, ok := r.byExt[ext]; ok {
		return e, nil
	}
	return r.fallback, nil
}

// Extract validates data and converts it with the extractor for name
func (r *Registry) Extract(name string, data []byte) (Result, error) {
	e, err := r.For(name)
	if err != nil {
		return Result{}, err
	}
	if err := ValidateUpload(data, r.maxBytes); err != nil {
		return Result{}, err
	}

	res, err := e.Extract(data)
	if err != nil {
		return Result{}, model.Wrap(err, model.KindValidation, "extract."+e.Name())
	}
	if strings.TrimSpace(res.Text) == "" {
		return Result{}, model.E(model.KindValidation, "extract."+e.Name(), "%s has no visible text", filepath.Base(name))
	}
	return res, nil
}

// ValidateUpload checks that data is non-empty UTF-8 text within maxBytes
func ValidateUpload(data []byte, maxBytes int) error {
	const op = "extract.ValidateUpload"
	if len(bytes.TrimSpace(data)) == 0 {
		return model.E(model.KindValidation, op, "document is empty")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return model.E(model.KindValidation, op, "document is %d bytes, limit is %d", len(data), maxBytes)
	}
	if !utf8.Valid(data) {
		return model.E(model.KindValidation, op, "document is not valid UTF-8")
	}
	return nil
}

// PlainExtractor reads text as is, dropping a byte order mark and
// normalizing line endings
type PlainExtractor struct{}

// Name returns the extractor name
func (PlainExtractor) Name() string { return "plain" }

// Extract returns data as text
func (PlainExtractor) Extract(data []byte) (Result, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return Result{Text: text}, nil
}

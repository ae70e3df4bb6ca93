package extract

import (
	"strings"
	"testing"

	"github.com/ppiankov/intralign/internal/model"
)

func TestRegistry_For(t *testing.T) {
	r := NewRegistry(0)

	tests := []struct {
		name string
		want string
	}{
		{"texto.txt", "plain"},
		{"notas.MD", "markdown"},
		{"pagina.htm", "html"},
		{"pagina.html", "html"},
		{"sem-extensao", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := r.For(tt.name)
			if err != nil {
				t.Fatalf("For failed: %v", err)
			}
			if e.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, e.Name())
			}
		})
	}
}

func TestRegistry_UnsupportedFormats(t *testing.T) {
	r := NewRegistry(0)
	for _, name := range []string{"a.pdf", "b.docx", "c.ODT"} {
		_, err := r.Extract(name, []byte("qualquer coisa"))
		if !model.IsKind(err, model.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if !strings.Contains(err.Error(), "unsupported format") {
			t.Errorf("%s: unexpected message %q", name, err)
		}
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		max     int
		wantErr bool
	}{
		{"ok", []byte("Olá, mundo."), 100, false},
		{"no limit", []byte(strings.Repeat("a", 5000)), 0, false},
		{"empty", []byte(""), 100, true},
		{"blank", []byte(" \n\t "), 100, true},
		{"too large", []byte("0123456789"), 5, true},
		{"invalid utf8", []byte{0x66, 0xff, 0xfe}, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.data, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !model.IsKind(err, model.KindValidation) {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestPlainExtractor(t *testing.T) {
	res, err := NewRegistry(0).Extract("a.txt", []byte("\ufeffPrimeiro.\r\n\r\nSegundo."))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "Primeiro.\n\nSegundo." {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestMarkdownExtractor(t *testing.T) {
	doc := strings.Join([]string{
		"# Título",
		"",
		"Texto com **negrito**, `código` e [um link](http://exemplo.org).",
		"",
		"```go",
		"fmt.Println(1)",
		"```",
		"",
		"- item um",
		"> citação",
		"---",
	}, "\n")

	res, err := MarkdownExtractor{}.Extract([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Título", "Texto com negrito, código e um link.", "item um", "citação"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("expected %q in %q", want, res.Text)
		}
	}
	for _, bad := range []string{"#", "**", "Println", "http://", "---"} {
		if strings.Contains(res.Text, bad) {
			t.Errorf("markup %q left in %q", bad, res.Text)
		}
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "1 code block dropped" {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
}

func TestHTMLExtractor(t *testing.T) {
	page := `<html><head><title>t</title><style>p{}</style></head><body>
<nav>Menu</nav>
<h1>O estudo</h1>
<p>O estudo mostra   que os <b>resultados</b> confirmam a ideia.</p>
<script>var x = 1;</script>
<div>Outra<br>linha</div>
</body></html>`

	res, err := HTMLExtractor{}.Extract([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	want := "O estudo\n\nO estudo mostra que os resultados confirmam a ideia.\n\nOutra linha"
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", res.Warnings)
	}
}

func TestRegistry_NoVisibleText(t *testing.T) {
	_, err := NewRegistry(0).Extract("a.html", []byte("<html><script>x()</script></html>"))
	if !model.IsKind(err, model.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/ppiankov/intralign/internal/model"
)

func TestSetDefaults_EnvOverride(t *testing.T) {
	t.Setenv("INTRALIGN_STORAGE_MODE", "sqlite")
	t.Setenv("INTRALIGN_ALIGNMENT_SENTENCE_THRESHOLD", "0.6")

	v := viper.New()
	if err := setDefaults(v); err != nil {
		t.Fatalf("setDefaults failed: %v", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Storage.Mode != model.StorageSQLite {
		t.Errorf("expected sqlite mode from env, got %q", cfg.Storage.Mode)
	}
	if cfg.Alignment.SentenceThreshold != 0.6 {
		t.Errorf("expected sentence threshold 0.6, got %v", cfg.Alignment.SentenceThreshold)
	}
	if cfg.Alignment.ParagraphThreshold != model.DefaultConfig().Alignment.ParagraphThreshold {
		t.Errorf("paragraph threshold should keep its default, got %v", cfg.Alignment.ParagraphThreshold)
	}
	if cfg.Cache.MemoryTTL != model.DefaultConfig().Cache.MemoryTTL {
		t.Errorf("memory ttl should survive the round trip, got %v", cfg.Cache.MemoryTTL)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"docs/original texto.txt", "original-texto"},
		{"https://example.org/artigos/ciencia.html", "ciencia"},
		{"a:b*c?.md", "a_b_c_"},
		{"", "pair"},
		{strings.Repeat("x", 150) + ".txt", strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArrow(t *testing.T) {
	if got := arrow("", "created"); got != "created" {
		t.Errorf("got %q", got)
	}
	if got := arrow("SL+", "SL+"); got != "SL+" {
		t.Errorf("got %q", got)
	}
	if got := arrow("created", "accepted"); got != "created -> accepted" {
		t.Errorf("got %q", got)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnnotateAndExport(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, "sessions")
	storeFlags := []string{"--storage-mode", "fs", "--storage-dir", dir, "--log-level", "error"}

	out, err := run(t, append([]string{"annotate", "create",
		"--session", "estudo-01", "--code", "SL+",
		"--target-start", "2", "--target-end", "7",
		"--confidence", "0.8", "--comment", "mostra"}, storeFlags...)...)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	var created model.Annotation
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode create output %q: %v", out, err)
	}
	if created.Status != model.StatusCreated || created.Origin != model.OriginHuman {
		t.Fatalf("unexpected annotation: %+v", created)
	}

	// Nothing validated yet, so the gold export is empty
	out, err = run(t, append([]string{"export", "--session", "estudo-01"}, storeFlags...)...)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected empty gold export, got %q", out)
	}

	if _, err := run(t, append([]string{"annotate", "accept", created.ID}, storeFlags...)...); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	out, err = run(t, append([]string{"export", "--session", "estudo-01"}, storeFlags...)...)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], created.ID) {
		t.Fatalf("expected one gold record for %s, got %q", created.ID, out)
	}

	_, err = run(t, append([]string{"annotate", "accept", "missing-id"}, storeFlags...)...)
	if !model.IsKind(err, model.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

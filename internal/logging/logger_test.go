package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", "console", "stderr"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNew_FileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intralign.log")

	logger, err := New("debug", "json", path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("store opened")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"message":"store opened"`) {
		t.Errorf("expected JSON message in log, got %s", data)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a no-op logger")
	}
}

package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/intralign/internal/model"
)

type mockAnalyzer struct {
	failOn string
}

func (m *mockAnalyzer) AnalyzePair(ctx context.Context, pair PairSpec) (*model.AnalysisResponse, error) {
	if pair.Source == m.failOn {
		return nil, errors.New("analysis failed")
	}
	return &model.AnalysisResponse{HierarchyVersion: model.HierarchyVersionBase}, nil
}

func TestBatchProcessor_ProcessPairs_KeepsManifestOrder(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{failOn: "b.txt"}, 3)

	pairs := []PairSpec{
		{Line: 1, Source: "a.txt", Target: "a.simple.txt"},
		{Line: 2, Source: "b.txt", Target: "b.simple.txt"},
		{Line: 5, Source: "c.txt", Target: "c.simple.txt"},
	}
	results := processor.ProcessPairs(context.Background(), pairs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Pair.Line != pairs[i].Line {
			t.Errorf("result %d out of order: line %d", i, r.Pair.Line)
		}
	}
	if results[1].Error == nil || results[1].Response != nil {
		t.Error("expected failure for b.txt")
	}
	if results[0].Error != nil || results[0].Response == nil {
		t.Errorf("unexpected failure for a.txt: %v", results[0].Error)
	}
}

func TestBatchProcessor_ProcessPairs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)
	if results := processor.ProcessPairs(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	content := `# corpus
orig/1.txt simple/1.txt s1
   
orig/2.txt /abs/2.txt
orig/1.txt simple/1.txt s1-dup
`
	path := filepath.Join(dir, "pairs.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pairs, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %+v", len(pairs), pairs)
	}
	if pairs[0].Source != filepath.Join(dir, "orig/1.txt") || pairs[0].Session != "s1" || pairs[0].Line != 2 {
		t.Errorf("unexpected first pair: %+v", pairs[0])
	}
	if pairs[1].Target != "/abs/2.txt" || pairs[1].Session != "" {
		t.Errorf("unexpected second pair: %+v", pairs[1])
	}
}

func TestReadManifest_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.txt")
	_ = os.WriteFile(path, []byte("only-one-field\n"), 0644)

	if _, err := ReadManifest(path); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestRunAll(t *testing.T) {
	var ran int32
	jobs := []*FuncJob{
		{Name: "s2", Fn: func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return nil }},
		{Name: "s1", Fn: func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return errors.New("disk full") }},
	}

	results := RunAll(context.Background(), 2, jobs)
	if len(results) != 2 || atomic.LoadInt32(&ran) != 2 {
		t.Fatalf("expected 2 executed jobs, got %d results", len(results))
	}
	if results[0].Name != "s1" || results[0].GetError() == nil {
		t.Errorf("expected sorted results with s1 failing, got %+v", results[0])
	}
}

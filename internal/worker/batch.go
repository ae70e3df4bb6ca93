package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/intralign/internal/model"
)

// PairSpec names one source/target file pair of a batch manifest
type PairSpec struct {
	Line    int
	Source  string
	Target  string
	Session string
}

// Analyzer runs one comparative analysis for a pair
type Analyzer interface {
	AnalyzePair(ctx context.Context, pair PairSpec) (*model.AnalysisResponse, error)
}

// AnalysisJob analyzes one pair
type AnalysisJob struct {
	Pair     PairSpec
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	resp, err := j.Analyzer.AnalyzePair(ctx, j.Pair)
	return &AnalysisResult{Pair: j.Pair, Response: resp, Error: err}
}

// AnalysisResult is the outcome of one AnalysisJob
type AnalysisResult struct {
	Pair     PairSpec
	Response *model.AnalysisResponse
	Error    error
}

// GetError returns the job error
func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many pairs concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessPairs analyzes pairs and returns results in manifest order
func (b *BatchProcessor) ProcessPairs(ctx context.Context, pairs []PairSpec) []*AnalysisResult {
	if len(pairs) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, pair := range pairs {
		if !pool.Submit(&AnalysisJob{Pair: pair, Analyzer: b.analyzer}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*AnalysisResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*AnalysisResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair.Line < out[j].Pair.Line })

	return out
}

// ProcessFile reads a manifest and analyzes every pair
func (b *BatchProcessor) ProcessFile(ctx context.Context, manifestPath string) ([]*AnalysisResult, error) {
	pairs, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return b.ProcessPairs(ctx, pairs), nil
}

// ReadManifest reads "source target [session]" lines. Relative paths are
// resolved against the manifest directory; blank lines and # comments are
// skipped; duplicate pairs are dropped.
func ReadManifest(path string) ([]PairSpec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	var pairs []PairSpec
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: expected \"source target [session]\", got %q", lineNo, line)
		}

		pair := PairSpec{Line: lineNo, Source: resolve(fields[0]), Target: resolve(fields[1])}
		if len(fields) == 3 {
			pair.Session = fields[2]
		}

		key := pair.Source + "\x00" + pair.Target
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, pair)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return pairs, nil
}

// FuncJob adapts a function into a Job, used for batch exports
type FuncJob struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Execute runs the function
func (j *FuncJob) Execute(ctx context.Context) Result {
	return &FuncResult{Name: j.Name, Error: j.Fn(ctx)}
}

// FuncResult is the outcome of a FuncJob
type FuncResult struct {
	Name  string
	Error error
}

// GetError returns the job error
func (r *FuncResult) GetError() error {
	return r.Error
}

// RunAll executes jobs on a pool and returns their results sorted by name
func RunAll(ctx context.Context, workers int, jobs []*FuncJob) []*FuncResult {
	pool := NewPool(ctx, workers)
	pool.Start()
	for _, j := range jobs {
		if !pool.Submit(j) {
			break
		}
	}

	var out []*FuncResult
	for _, r := range pool.Wait() {
		out = append(out, r.(*FuncResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

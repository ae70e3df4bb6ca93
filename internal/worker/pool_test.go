package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// exportJob stands in for one per-session export
func exportJob(session string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{Name: session, Fn: fn}
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	for _, n := range []int{0, -3} {
		if p := NewPool(context.Background(), n); p.workers != 1 {
			t.Errorf("NewPool(%d): expected 1 worker, got %d", n, p.workers)
		}
	}
	if p := NewPool(context.Background(), 6); p.workers != 6 {
		t.Errorf("expected 6 workers, got %d", p.workers)
	}
}

func TestPool_DrainsResultsWhileSubmitting(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var ran int32
	sessions := 75
	for i := 0; i < sessions; i++ {
		pool.Submit(exportJob(fmt.Sprintf("sessao-%02d", i), func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}))
	}

	results := pool.Wait()
	if len(results) != sessions {
		t.Errorf("expected %d results, got %d", sessions, len(results))
	}
	if got := atomic.LoadInt32(&ran); got != int32(sessions) {
		t.Errorf("expected %d exports to run, got %d", sessions, got)
	}
}

func TestPool_NeverExceedsWorkers(t *testing.T) {
	const workers = 3
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var mu sync.Mutex
	active, peak := 0, 0
	for i := 0; i < 15; i++ {
		pool.Submit(exportJob(fmt.Sprintf("s%d", i), func(context.Context) error {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(4 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		}))
	}
	pool.Wait()

	if peak > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", peak, workers)
	}
}

func TestPool_ReportsFailuresPerJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(exportJob("ok", func(context.Context) error { return nil }))
	pool.Submit(exportJob("broken", func(context.Context) error { return errors.New("disk full") }))

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		fr := r.(*FuncResult)
		if (fr.Name == "broken") != (fr.GetError() != nil) {
			t.Errorf("unexpected outcome for %s: %v", fr.Name, fr.GetError())
		}
	}
}

func TestPool_RefusesWorkAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()
	pool.Shutdown()

	if pool.Submit(exportJob("late", func(context.Context) error { return nil })) {
		t.Error("Submit accepted a job after Shutdown")
	}
}

func TestPool_StopsOnParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	pool.Submit(exportJob("slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown hung after the parent context was cancelled")
	}
}

package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("openai") {
		t.Fatal("expected first call to be allowed")
	}
	if l.Allow("openai") {
		t.Error("expected second immediate call for the same key to be limited")
	}
	if !l.Allow("ollama") {
		t.Error("expected a different key to have its own budget")
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	l := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !l.Allow("local") {
			t.Fatalf("call %d was limited", i)
		}
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.01, 1)
	_ = l.Allow("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "slow"); err == nil {
		t.Error("expected Wait to fail when the context expires first")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	l := NewLimiter(1, 1)
	l.SetRate("fast", 1000, 10)

	for i := 0; i < 10; i++ {
		if !l.Allow("fast") {
			t.Fatalf("call %d was limited despite burst 10", i)
		}
	}
}

package embedding

import (
	"context"
	"fmt"

	"github.com/ppiankov/intralign/internal/worker"
)

// ThrottledProvider waits on a keyed limiter before each remote call
type ThrottledProvider struct {
	inner   Provider
	limiter *worker.Limiter
}

// NewThrottledProvider wraps inner with limiter, keyed by inner.Name()
func NewThrottledProvider(inner Provider, limiter *worker.Limiter) *ThrottledProvider {
	return &ThrottledProvider{inner: inner, limiter: limiter}
}

// Name returns the wrapped provider name
func (p *ThrottledProvider) Name() string {
	return p.inner.Name()
}

// Embed waits for clearance and then calls the wrapped provider
func (p *ThrottledProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.limiter.Wait(ctx, p.inner.Name()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return p.inner.Embed(ctx, text)
}

// Ping forwards to the wrapped provider when it supports it
func (p *ThrottledProvider) Ping(ctx context.Context) error {
	if pinger, ok := p.inner.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

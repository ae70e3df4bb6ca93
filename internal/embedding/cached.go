package embedding

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/cache"
)

// CachedProvider memoizes vectors in a cache keyed by provider name and text
type CachedProvider struct {
	inner  Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps inner with c. A ttl of 0 uses the cache default.
func NewCachedProvider(inner Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Name returns the wrapped provider name
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// Embed serves from cache, falling back to the wrapped provider. Cache write
// failures are logged and otherwise ignored.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.CacheKey(p.inner.Name(), text)

	if data, ok := p.cache.Get(key); ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil {
			return vec, nil
		}
		_ = p.cache.Delete(key)
	}

	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(vec)
	if err == nil {
		err = p.cache.Set(key, data, p.ttl)
	}
	if err != nil {
		p.logger.Warn("embedding cache write failed", zap.String("provider", p.inner.Name()), zap.Error(err))
	}

	return vec, nil
}

// Ping forwards to the wrapped provider when it supports it
func (p *CachedProvider) Ping(ctx context.Context) error {
	if pinger, ok := p.inner.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

package embedding

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/cache"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/worker"
)

// NewProvider builds the configured provider. Remote providers are rate
// limited; every provider is wrapped in the vector cache when enabled.
func NewProvider(cfg model.EmbeddingConfig, cacheCfg model.CacheConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var base Provider
	remote := true

	switch strings.ToLower(cfg.Provider) {
	case "", "local", "hash":
		base = NewHashingProvider(cfg.Dimensions)
		remote = false
	case "ollama":
		p, err := NewOllamaProvider(cfg)
		if err != nil {
			return nil, err
		}
		base = p
	case "openai":
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		base = p
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: local, ollama, openai)", cfg.Provider)
	}

	provider := base
	if remote {
		provider = NewThrottledProvider(provider, worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst))
	}

	if cacheCfg.Enabled {
		var c cache.Cache
		if remote && cacheCfg.Dir != "" {
			c = cache.NewLayeredCache(cacheCfg.MemoryTTL, filepath.Join(cacheCfg.Dir, "embeddings"), cacheCfg.DiskTTL)
		} else {
			c = cache.NewMemoryCache(cacheCfg.MemoryTTL, 10*time.Minute)
		}
		provider = NewCachedProvider(provider, c, 0, logger)
	}

	logger.Debug("embedding provider ready",
		zap.String("provider", base.Name()),
		zap.Bool("cached", cacheCfg.Enabled),
		zap.Bool("rate_limited", remote))

	return provider, nil
}

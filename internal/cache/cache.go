package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a stable key for text under a namespace, e.g. an
// embedding model name or a salience method
func CacheKey(namespace, text string) string {
	hash := sha256.Sum256([]byte(text))
	return "intralign:v1:" + sanitize(namespace) + ":" + hex.EncodeToString(hash[:])
}

// sanitize keeps namespaces usable as file name fragments
func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

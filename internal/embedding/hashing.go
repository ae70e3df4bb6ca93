package embedding

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/ppiankov/intralign/internal/textutil"
)

// DefaultDimensions is the vector size of the local hashing provider
const DefaultDimensions = 4096

// HashingProvider is an offline bag-of-words embedder: every folded word is
// hashed into one of dims buckets and counted. It needs no model and is
// deterministic, which makes it the default for tests and air-gapped use.
type HashingProvider struct {
	dims int
}

// NewHashingProvider creates a local provider with dims buckets
func NewHashingProvider(dims int) *HashingProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashingProvider{dims: dims}
}

// Name returns the provider name
func (p *HashingProvider) Name() string {
	return fmt.Sprintf("local-hash-%d", p.dims)
}

// Embed returns term-frequency counts over hashed buckets
func (p *HashingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, p.dims)
	for _, w := range textutil.Words(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(p.dims)]++
	}
	return vec, nil
}

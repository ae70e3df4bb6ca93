// Package embedding turns text units into vectors for semantic alignment.
package embedding

import (
	"context"
	"math"
)

// Provider embeds text into a dense vector
type Provider interface {
	// Name identifies the provider and model, used for cache keys and rate limiting
	Name() string

	// Embed returns the vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Pinger is implemented by providers that can check their backend
type Pinger interface {
	Ping(ctx context.Context) error
}

// CosineSimilarity returns the cosine of the angle between a and b clamped
// to [0,1]. Mismatched or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(sim), sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}

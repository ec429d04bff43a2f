package embed

import (
	"context"
	"math"
)

// Vectorizer is the pure-function boundary: text in, fixed-dimension
// vectors out. Implementations must be deterministic for identical input
// and safe to call repeatedly; serialisation across calls is handled by
// Embedder, not by the Vectorizer itself.
type Vectorizer interface {
	// Vectorize embeds a batch of texts, returning one vector per input
	// in the same order. Output dimension is fixed per Vectorizer
	// instance.
	Vectorize(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the fixed output vector length.
	Dimension() int
}

// CosineSimilarity is the standard dot product divided by the product of
// L2 norms. A zero-norm input yields 0, and mismatched dimensions yield 0
// rather than an error — per the data model, dimension drift is treated
// as "not comparable", not a failure.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// StaticDimensions is the fixed output dimension of StaticVectorizer.
const StaticDimensions = 256

// StaticVectorizer produces deterministic hash-based vectors with no
// network or model dependency. It exists for tests and for environments
// where no embedding backend is reachable — useful, but never mistaken
// for a real semantic model.
type StaticVectorizer struct{}

var _ Vectorizer = StaticVectorizer{}

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

func (StaticVectorizer) Dimension() int { return StaticDimensions }

func (StaticVectorizer) Vectorize(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = staticVector(t)
	}
	return out, nil
}

func staticVector(text string) []float32 {
	vec := make([]float32, StaticDimensions)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vec
	}

	for _, tok := range tokenRegex.FindAllString(strings.ToLower(trimmed), -1) {
		vec[hashToIndex(tok)] += 1
	}

	return normalize(vec)
}

func hashToIndex(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % StaticDimensions)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

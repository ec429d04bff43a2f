package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the embedding cache to a few thousand entries,
// enough to absorb re-embedding the same heading or repeated query across
// a watch session without unbounded growth.
const defaultCacheSize = 4096

// Embedder wraps a single Vectorizer behind a mutex. Concurrent callers
// share one mutable vectoriser; embedding is serialised even under
// concurrent load, because model invocation throughput — not
// parallelism — is the actual bottleneck. Results are cached by content
// hash so re-indexing unchanged chunks and repeating a query never pay
// for a second model call.
type Embedder struct {
	mu    sync.Mutex
	vec   Vectorizer
	cache *lru.Cache[string, []float32]
}

// New wraps a Vectorizer for serialised concurrent use.
func New(v Vectorizer) *Embedder {
	cache, _ := lru.New[string, []float32](defaultCacheSize)
	return &Embedder{vec: v, cache: cache}
}

func (e *Embedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Dimension reports the wrapped vectoriser's fixed output dimension.
func (e *Embedder) Dimension() int {
	return e.vec.Dimension()
}

// EmbedChunks vectorises a batch of chunk spans, pairing each with its
// resulting vector in the same order. Spans whose text hash is already
// cached skip the vectoriser entirely.
func (e *Embedder) EmbedChunks(ctx context.Context, spans []ChunkSpan) ([]EmbeddedChunk, error) {
	if len(spans) == 0 {
		return nil, nil
	}

	out := make([]EmbeddedChunk, len(spans))
	var missIdx []int
	var missTexts []string
	for i, s := range spans {
		if vec, ok := e.cache.Get(e.cacheKey(s.Text)); ok {
			out[i] = EmbeddedChunk{ChunkSpan: s, Index: i, Vector: vec}
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, s.Text)
	}

	if len(missTexts) > 0 {
		e.mu.Lock()
		vectors, err := e.vec.Vectorize(ctx, missTexts)
		e.mu.Unlock()
		if err != nil {
			return nil, err
		}
		for j, i := range missIdx {
			out[i] = EmbeddedChunk{ChunkSpan: spans[i], Index: i, Vector: vectors[j]}
			e.cache.Add(e.cacheKey(spans[i].Text), vectors[j])
		}
	}

	return out, nil
}

// EmbedQuery embeds a single query string through the same cached,
// serialised path as EmbedChunks.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}

	e.mu.Lock()
	vectors, err := e.vec.Vectorize(ctx, []string{text})
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	e.cache.Add(key, vectors[0])
	return vectors[0], nil
}

// EmbeddedChunk pairs a chunk span with its vector and position.
type EmbeddedChunk struct {
	ChunkSpan
	Index  int
	Vector []float32
}

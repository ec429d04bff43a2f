// Package search dispatches queries across the five modes the core
// supports — lexical, semantic, hybrid, fuzzy and regex — consulting
// internal/store for lexical matches and embedding blobs, and
// internal/embed for query vectorisation and cosine scoring.
package search

import (
	"context"
	"fmt"

	"github.com/urbanisierung/knowledge-index/internal/embed"
	"github.com/urbanisierung/knowledge-index/internal/kerrors"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

// Mode is a finite closed tagged variant; dispatch is a single switch in
// Search, never runtime polymorphism.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
	ModeFuzzy    Mode = "fuzzy"
	ModeRegex    Mode = "regex"
)

// Options configures one Search call. RepoFilter is a substring match on
// repository name; CategoryFilter is an exact match on File category.
type Options struct {
	Mode          Mode
	RepoFilter    string
	CategoryFilter string
	Limit         int
}

// Result is one ranked match, shape shared across every mode.
type Result struct {
	FileID   int64
	RelPath  string
	RepoID   int64
	Category string
	Score    float64
	Snippet  string
	Mode     Mode
}

const defaultLimit = 10

// Searcher dispatches across the five search modes against one Store and
// (when semantic search is enabled) one Embedder.
type Searcher struct {
	store    *store.Store
	embedder *embed.Embedder
}

// New builds a Searcher. embedder may be nil; ModeSemantic and ModeHybrid
// then degrade to lexical-only per spec (CapabilityUnavailable).
func New(s *store.Store, embedder *embed.Embedder) *Searcher {
	return &Searcher{store: s, embedder: embedder}
}

// Search runs query against the requested mode and returns at most
// opts.Limit results, ordered best-first.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}

	switch opts.Mode {
	case "", ModeLexical:
		return s.lexical(ctx, query, opts)
	case ModeSemantic:
		if s.embedder == nil {
			return s.lexical(ctx, query, opts)
		}
		return s.semantic(ctx, query, opts)
	case ModeHybrid:
		if s.embedder == nil {
			return s.lexical(ctx, query, opts)
		}
		return s.hybrid(ctx, query, opts)
	case ModeFuzzy:
		return s.fuzzy(ctx, query, opts)
	case ModeRegex:
		return s.regex(ctx, query, opts)
	default:
		return nil, kerrors.New(kerrors.InvalidInput, fmt.Sprintf("unknown search mode %q", opts.Mode))
	}
}

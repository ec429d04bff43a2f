package search

import (
	"context"
	"sort"

	"github.com/urbanisierung/knowledge-index/internal/embed"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

type scoredCandidate struct {
	candidate store.VectorCandidate
	score     float32
}

func (s *Searcher) semantic(ctx context.Context, query string, opts Options) ([]Result, error) {
	candidates, err := s.rankedCandidates(ctx, query, opts.RepoFilter, opts.CategoryFilter)
	if err != nil {
		return nil, err
	}
	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}
	return scoredToResults(candidates, ModeSemantic), nil
}

// rankedCandidates embeds query, streams every matching chunk from the
// Store and returns candidates sorted best-first. Equal scores keep the
// order chunks were streamed in, so a later chunk never outranks an
// earlier one on a tie.
func (s *Searcher) rankedCandidates(ctx context.Context, query, repoFilter, categoryFilter string) ([]scoredCandidate, error) {
	qvec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var candidates []scoredCandidate
	err = s.store.StreamChunks(ctx, repoFilter, categoryFilter, func(c store.VectorCandidate) error {
		candidates = append(candidates, scoredCandidate{
			candidate: c,
			score:     embed.CosineSimilarity(qvec, c.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates, nil
}

func scoredToResults(candidates []scoredCandidate, mode Mode) []Result {
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{
			FileID:   c.candidate.FileID,
			RelPath:  c.candidate.RelPath,
			RepoID:   c.candidate.RepoID,
			Category: c.candidate.Category,
			Score:    float64(c.score),
			Snippet:  c.candidate.Text,
			Mode:     mode,
		}
	}
	return out
}

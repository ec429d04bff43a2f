package search

import (
	"context"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// rrfConstant is the RRF smoothing constant; k=60 is the value spec.md
// carries forward as empirically validated across domains.
const rrfConstant = 60

type hybridCandidate struct {
	result   Result
	absPath  string
	rrfScore float64
}

// hybrid retrieves 2*limit lexical and 2*limit semantic candidates,
// fuses them with Reciprocal Rank Fusion (k=60), dedups by absolute path
// and truncates to opts.Limit. Every surviving result is marked hybrid.
func (s *Searcher) hybrid(ctx context.Context, query string, opts Options) ([]Result, error) {
	fanout := opts.Limit * 2
	if fanout <= 0 {
		fanout = defaultLimit * 2
	}

	var lexHits []Result
	var semCandidates []scoredCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexHits, err = s.lexical(gctx, query, Options{RepoFilter: opts.RepoFilter, CategoryFilter: opts.CategoryFilter, Limit: fanout})
		return err
	})
	g.Go(func() error {
		var err error
		semCandidates, err = s.rankedCandidates(gctx, query, opts.RepoFilter, opts.CategoryFilter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(semCandidates) > fanout {
		semCandidates = semCandidates[:fanout]
	}
	semHits := scoredToResults(semCandidates, ModeSemantic)

	pathCache := map[int64]string{}
	fused := map[string]*hybridCandidate{}

	resolve := func(r Result) (string, error) {
		if p, ok := pathCache[r.RepoID]; ok {
			return filepath.Join(p, r.RelPath), nil
		}
		repo, err := s.store.GetRepositoryByID(ctx, r.RepoID)
		if err != nil {
			return "", err
		}
		pathCache[r.RepoID] = repo.Path
		return filepath.Join(repo.Path, r.RelPath), nil
	}

	for rank, r := range lexHits {
		abs, err := resolve(r)
		if err != nil {
			return nil, err
		}
		c, ok := fused[abs]
		if !ok {
			c = &hybridCandidate{result: r, absPath: abs}
			fused[abs] = c
		}
		c.rrfScore += 1.0 / float64(rrfConstant+rank+1)
	}
	for rank, r := range semHits {
		abs, err := resolve(r)
		if err != nil {
			return nil, err
		}
		c, ok := fused[abs]
		if !ok {
			c = &hybridCandidate{result: r, absPath: abs}
			fused[abs] = c
		} else if c.result.Snippet == "" {
			c.result.Snippet = r.Snippet
		}
		c.rrfScore += 1.0 / float64(rrfConstant+rank+1)
	}

	out := make([]hybridCandidate, 0, len(fused))
	for _, c := range fused {
		c.result.Mode = ModeHybrid
		c.result.Score = c.rrfScore
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].rrfScore != out[j].rrfScore {
			return out[i].rrfScore > out[j].rrfScore
		}
		return out[i].absPath < out[j].absPath
	})
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	results := make([]Result, len(out))
	for i, c := range out {
		results[i] = c.result
	}
	return results, nil
}

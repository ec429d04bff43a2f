package search

import (
	"context"
	"strings"

	"github.com/urbanisierung/knowledge-index/internal/store"
)

// ftsReserved are FTS5 query-syntax characters that must not reach MATCH
// verbatim from free-text user input.
const ftsReserved = `"*():^`

// escapeFTSQuery passes a caller's query through unchanged when it is
// wrapped in double quotes (phrase search), otherwise strips every FTS5
// reserved character so the query can never be interpreted as syntax.
func escapeFTSQuery(query string) string {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		return trimmed
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(ftsReserved, r) {
			return ' '
		}
		return r
	}, query)
}

func (s *Searcher) lexical(ctx context.Context, query string, opts Options) ([]Result, error) {
	hits, err := s.store.FTSSearch(ctx, escapeFTSQuery(query), opts.RepoFilter, opts.CategoryFilter, opts.Limit, 0)
	if err != nil {
		return nil, err
	}
	return hitsToResults(hits, ModeLexical), nil
}

func hitsToResults(hits []store.FTSHit, mode Mode) []Result {
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{
			FileID:   h.FileID,
			RelPath:  h.RelPath,
			RepoID:   h.RepoID,
			Category: h.Category,
			Score:    h.Score,
			Snippet:  h.Snippet,
			Mode:     mode,
		}
	}
	return out
}

package search

import (
	"context"
	"sort"
	"strings"

	"github.com/xrash/smetrics"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity a candidate must
// clear to survive; spec.md's Open Question preserves 0.6 as the cutoff.
const fuzzyThreshold = 0.6

// jwBoostThreshold and jwPrefixSize are the standard smetrics defaults for
// the Jaro-Winkler common-prefix boost.
const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

func (s *Searcher) fuzzy(ctx context.Context, query string, opts Options) ([]Result, error) {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	fanout := opts.Limit * 4
	if fanout <= 0 {
		fanout = defaultLimit * 4
	}

	prefixTokens := make([]string, len(tokens))
	for i, t := range tokens {
		prefixTokens[i] = t + "*"
	}
	prefixQuery := strings.Join(prefixTokens, " ")
	exactQuery := escapeFTSQuery(query)

	prefixHits, err := s.store.FTSSearch(ctx, prefixQuery, opts.RepoFilter, opts.CategoryFilter, fanout, 0)
	if err != nil {
		return nil, err
	}
	exactHits, err := s.store.FTSSearch(ctx, exactQuery, opts.RepoFilter, opts.CategoryFilter, fanout, 0)
	if err != nil {
		return nil, err
	}

	byFile := make(map[int64]Result, len(prefixHits)+len(exactHits))
	for _, h := range hitsToResults(prefixHits, ModeFuzzy) {
		byFile[h.FileID] = h
	}
	for _, h := range hitsToResults(exactHits, ModeFuzzy) {
		byFile[h.FileID] = h
	}

	out := make([]Result, 0, len(byFile))
	for _, r := range byFile {
		score := fuzzyScore(tokens, query, r)
		if score < fuzzyThreshold {
			continue
		}
		r.Score = score
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].RelPath < out[j].RelPath
	})
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// fuzzyScore is the max of (a) the average, over query tokens, of the best
// Jaro-Winkler similarity against any snippet token, and (b) the
// Jaro-Winkler similarity of the whole query against the candidate's path.
func fuzzyScore(queryTokens []string, query string, r Result) float64 {
	snippetTokens := strings.Fields(stripSnippetDelimiters(r.Snippet))

	var sum float64
	for _, qt := range queryTokens {
		best := 0.0
		for _, st := range snippetTokens {
			sim := smetrics.JaroWinkler(strings.ToLower(qt), strings.ToLower(st), jwBoostThreshold, jwPrefixSize)
			if sim > best {
				best = sim
			}
		}
		sum += best
	}
	avg := 0.0
	if len(queryTokens) > 0 {
		avg = sum / float64(len(queryTokens))
	}

	pathScore := smetrics.JaroWinkler(strings.ToLower(query), strings.ToLower(r.RelPath), jwBoostThreshold, jwPrefixSize)
	if pathScore > avg {
		return pathScore
	}
	return avg
}

func stripSnippetDelimiters(snippet string) string {
	s := strings.ReplaceAll(snippet, ">>>", " ")
	s = strings.ReplaceAll(s, "<<<", " ")
	return s
}

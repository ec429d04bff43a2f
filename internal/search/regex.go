package search

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

// regex streams every file of every matching Repository from disk and
// returns the first match per file. It does not touch the FTS index:
// spec.md trades speed for exact, un-tokenized accuracy here.
func (s *Searcher) regex(ctx context.Context, pattern string, opts Options) ([]Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.InvalidInput, "compile regex pattern", err)
	}

	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	var out []Result
	for _, repo := range repos {
		if opts.RepoFilter != "" && !strings.Contains(strings.ToLower(repo.Name), strings.ToLower(opts.RepoFilter)) {
			continue
		}

		files, err := s.store.ListFiles(ctx, repo.ID)
		if err != nil {
			return nil, err
		}
		relPaths := make([]string, 0, len(files))
		for rel := range files {
			relPaths = append(relPaths, rel)
		}
		sort.Strings(relPaths)

		for _, rel := range relPaths {
			f := files[rel]
			if opts.CategoryFilter != "" && f.Category != opts.CategoryFilter {
				continue
			}

			content, err := os.ReadFile(filepath.Join(repo.Path, rel))
			if err != nil {
				continue
			}

			loc := re.FindIndex(content)
			if loc == nil {
				continue
			}

			out = append(out, Result{
				FileID:   f.ID,
				RelPath:  rel,
				RepoID:   repo.ID,
				Category: f.Category,
				Score:    1,
				Snippet:  ">>>" + matchLine(content, loc[0]) + "<<<",
				Mode:     ModeRegex,
			})
			if len(out) >= opts.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// matchLine returns the line containing byte offset pos, excluding the
// surrounding newlines.
func matchLine(content []byte, pos int) string {
	start := pos
	for start > 0 && content[start-1] != '\n' {
		start--
	}
	end := pos
	for end < len(content) && content[end] != '\n' {
		end++
	}
	return strings.TrimRight(string(content[start:end]), "\r")
}

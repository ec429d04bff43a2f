// Package mcpcore exposes the core's four-tool MCP collaborator surface
// (search, list_repos, get_file, get_context) as plain Go methods. The
// JSON-over-stdio transport that would dispatch to these methods is out
// of scope: this package is only the callable surface a transport would
// invoke, grounded on the teacher's internal/mcp tool-handler shapes but
// stripped of the MCP SDK wiring itself.
package mcpcore

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
	"github.com/urbanisierung/knowledge-index/internal/search"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	defaultMaxChars    = 50_000
	defaultContextLines = 10
)

// Core is the dependency set every tool method draws on.
type Core struct {
	Store    *store.Store
	Searcher *search.Searcher
}

// New builds a Core over an already-open Store and Searcher.
func New(s *store.Store, searcher *search.Searcher) *Core {
	return &Core{Store: s, Searcher: searcher}
}

// SearchResult is one row of a SearchOutput.
type SearchResult struct {
	RelPath  string  `json:"rel_path"`
	RepoID   int64   `json:"repo_id"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet"`
	Mode     string  `json:"mode"`
}

// SearchOutput is the search tool's return shape.
type SearchOutput struct {
	Results   []SearchResult `json:"results"`
	Truncated bool           `json:"truncated"`
	Hint      string         `json:"hint,omitempty"`
}

// Search implements the `search(query, limit≤50, repo?, file_type?, mode?)`
// tool. limit is clamped to [1, 50], defaulting to 10 when <= 0.
func (c *Core) Search(ctx context.Context, query string, limit int, repo, fileType, mode string) (SearchOutput, error) {
	if strings.TrimSpace(query) == "" {
		return SearchOutput{}, kerrors.New(kerrors.InvalidInput, "query must not be empty")
	}
	limit = clampLimit(limit, defaultSearchLimit, 1, maxSearchLimit)

	opts := search.Options{
		Mode:           search.Mode(mode),
		RepoFilter:     repo,
		CategoryFilter: fileType,
		Limit:          limit,
	}

	results, err := c.Searcher.Search(ctx, query, opts)
	if err != nil {
		return SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]SearchResult, len(results))}
	for i, r := range results {
		out.Results[i] = SearchResult{
			RelPath:  r.RelPath,
			RepoID:   r.RepoID,
			Category: r.Category,
			Score:    r.Score,
			Snippet:  r.Snippet,
			Mode:     string(r.Mode),
		}
	}
	if len(results) >= limit {
		out.Truncated = true
		out.Hint = fmt.Sprintf("results truncated at limit=%d; narrow the query or raise limit", limit)
	}
	return out, nil
}

// RepoSummary is one list_repos row.
type RepoSummary struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	FileCount   int    `json:"file_count"`
	Status      string `json:"status"`
	LastIndexed string `json:"last_indexed"`
}

// ListRepos implements the `list_repos()` tool.
func (c *Core) ListRepos(ctx context.Context) ([]RepoSummary, error) {
	repos, err := c.Store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RepoSummary, len(repos))
	for i, r := range repos {
		out[i] = RepoSummary{
			Name:        r.Name,
			Path:        r.Path,
			FileCount:   r.FileCount,
			Status:      string(r.Status),
			LastIndexed: r.LastIndexed.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return out, nil
}

// GetFileOutput is the get_file tool's return shape.
type GetFileOutput struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// GetFile implements `get_file(path, max_chars=50_000)`. It reads
// directly from disk — the Store holds file metadata, not a content
// cache — and clamps to maxChars, reporting truncation.
func (c *Core) GetFile(path string, maxChars int) (GetFileOutput, error) {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return GetFileOutput{}, kerrors.Wrap(kerrors.NotFound, "read file", err)
	}
	content := string(data)
	if len(content) <= maxChars {
		return GetFileOutput{Content: content}, nil
	}
	return GetFileOutput{Content: content[:maxChars], Truncated: true}, nil
}

// GetContext implements `get_context(path, line, context_lines=10)`,
// returning the window of lines centred on line, each prefixed with its
// 1-based line number.
func (c *Core) GetContext(path string, line, contextLines int) (string, error) {
	if contextLines <= 0 {
		contextLines = defaultContextLines
	}
	if line <= 0 {
		return "", kerrors.New(kerrors.InvalidInput, "line must be 1-based and positive")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", kerrors.Wrap(kerrors.NotFound, "open file", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", kerrors.Wrap(kerrors.IO, "scan file", err)
	}

	from := line - contextLines - 1
	if from < 0 {
		from = 0
	}
	to := line + contextLines
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return "", kerrors.New(kerrors.InvalidInput, "line is out of range for this file")
	}

	var b strings.Builder
	for i := from; i < to; i++ {
		fmt.Fprintf(&b, "%d: %s\n", i+1, lines[i])
	}
	return b.String(), nil
}

func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

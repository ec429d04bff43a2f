package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanisierung/knowledge-index/internal/embed"
	"github.com/urbanisierung/knowledge-index/internal/index"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

func newTestSearcher(t *testing.T, semantic bool) (*Searcher, *index.Indexer, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	embedder := embed.New(embed.StaticVectorizer{})
	idx := index.New(s, embedder)
	var searcherEmbedder *embed.Embedder
	if semantic {
		searcherEmbedder = embedder
	}
	return New(s, searcherEmbedder), idx, s
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// Scenario A — lexical hit.
func TestSearch_ScenarioA_LexicalHit(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, false)
	root := t.TempDir()
	writeFile(t, root, "main.rs", `fn main() { println!("Hello"); }`)

	_, err := idx.Ingest(context.Background(), root, index.Options{})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "Hello", Options{Mode: ModeLexical, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "main.rs", results[0].RelPath)
	assert.Contains(t, results[0].Snippet, ">>>Hello<<<")
}

// Property 5 — snippet delimiter roundtrip.
func TestSearch_SnippetDelimiterRoundtrip(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, false)
	root := t.TempDir()
	content := "the quick brown fox jumps over the lazy dog"
	writeFile(t, root, "note.txt", content)

	_, err := idx.Ingest(context.Background(), root, index.Options{})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "fox", Options{Mode: ModeLexical, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)

	stripped := strings.ReplaceAll(results[0].Snippet, ">>>", "")
	stripped = strings.ReplaceAll(stripped, "<<<", "")
	stripped = strings.ReplaceAll(stripped, "...", "")
	assert.Contains(t, content, strings.TrimSpace(stripped))
}

// Property 7 — cosine bounds.
func TestCosineSimilarity_Bounds(t *testing.T) {
	a := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, embed.CosineSimilarity(a, a), 1e-6)
	assert.Equal(t, float32(0), embed.CosineSimilarity(a, []float32{0, 0, 0}))
	assert.Equal(t, float32(0), embed.CosineSimilarity(a, []float32{1, 2}))
}

// Scenario E — hybrid fusion.
func TestSearch_ScenarioE_HybridFusion(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, true)
	root := t.TempDir()
	writeFile(t, root, "d1.txt", "authenticate user session")
	writeFile(t, root, "d2.txt", "user login handler")

	_, err := idx.Ingest(context.Background(), root, index.Options{EnableSemanticSearch: true})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "authentication login", Options{Mode: ModeHybrid, Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	paths := []string{results[0].RelPath, results[1].RelPath}
	assert.Contains(t, paths, "d1.txt")
	assert.Contains(t, paths, "d2.txt")
	for _, r := range results {
		assert.Equal(t, ModeHybrid, r.Mode)
	}
}

// Property 6 — hybrid stability: re-running the same query against
// unchanged content yields the same ordering.
func TestSearch_HybridStability(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, true)
	root := t.TempDir()
	writeFile(t, root, "d1.txt", "authenticate user session")
	writeFile(t, root, "d2.txt", "user login handler")

	_, err := idx.Ingest(context.Background(), root, index.Options{EnableSemanticSearch: true})
	require.NoError(t, err)

	r1, err := searcher.Search(context.Background(), "authentication login", Options{Mode: ModeHybrid, Limit: 2})
	require.NoError(t, err)
	r2, err := searcher.Search(context.Background(), "authentication login", Options{Mode: ModeHybrid, Limit: 2})
	require.NoError(t, err)

	require.Len(t, r1, len(r2))
	for i := range r1 {
		assert.Equal(t, r1[i].RelPath, r2[i].RelPath)
	}
}

// Scenario F — regex mode.
func TestSearch_ScenarioF_RegexMode(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, false)
	root := t.TempDir()
	writeFile(t, root, "todo.go", "package main\n// TODO: refactor\nfunc main() {}\n")

	_, err := idx.Ingest(context.Background(), root, index.Options{})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "TODO|FIXME", Options{Mode: ModeRegex, Limit: 50})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ">>>// TODO: refactor<<<", results[0].Snippet)
}

func TestSearch_Fuzzy_DropsBelowThreshold(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, false)
	root := t.TempDir()
	writeFile(t, root, "note.md", "completely unrelated content about gardening")

	_, err := idx.Ingest(context.Background(), root, index.Options{})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "zzqxw", Options{Mode: ModeFuzzy, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_Fuzzy_MatchesCloseToken(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, false)
	root := t.TempDir()
	writeFile(t, root, "note.md", "authentication error handling")

	_, err := idx.Ingest(context.Background(), root, index.Options{})
	require.NoError(t, err)

	// "authentic" prefix-matches the indexed token "authentication" via
	// FTS, then the Jaro-Winkler distance between the two clears 0.6.
	results, err := searcher.Search(context.Background(), "authentic", Options{Mode: ModeFuzzy, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "note.md", results[0].RelPath)
}

func TestSearch_CapabilityUnavailable_DegradesToLexical(t *testing.T) {
	searcher, idx, _ := newTestSearcher(t, false) // no embedder wired
	root := t.TempDir()
	writeFile(t, root, "note.md", "hello there")

	_, err := idx.Ingest(context.Background(), root, index.Options{})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "hello", Options{Mode: ModeSemantic, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ModeLexical, results[0].Mode)
}

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanisierung/knowledge-index/internal/index"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newIndexedStore(t *testing.T) (*store.Store, int64) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "See [[b]].")
	writeFile(t, dir, "b.md", "# B\n\nNo outgoing links here.")
	writeFile(t, dir, "c.md", "# Orphan\n\nLinked by nobody, links to nobody.")

	dbPath := filepath.Join(t.TempDir(), "core.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	idx := index.New(s, nil)
	_, err = idx.Ingest(context.Background(), dir, index.Options{DisplayName: "notes"})
	require.NoError(t, err)

	repo, err := s.GetRepositoryByPath(context.Background(), dir)
	require.NoError(t, err)

	return s, repo.ID
}

func TestBuild_ShortestPath_FindsDirectLink(t *testing.T) {
	s, repoID := newIndexedStore(t)

	kg, err := Build(context.Background(), s)
	require.NoError(t, err)

	path, err := kg.ShortestPath(repoID, "a.md", repoID, "b.md")
	require.NoError(t, err)
	assert.Len(t, path, 2)
}

func TestBuild_ShortestPath_NoPathIsNotFound(t *testing.T) {
	s, repoID := newIndexedStore(t)

	kg, err := Build(context.Background(), s)
	require.NoError(t, err)

	_, err = kg.ShortestPath(repoID, "b.md", repoID, "a.md")
	assert.Error(t, err)
}

func TestBuild_Orphans_FindsUnlinkedNote(t *testing.T) {
	s, _ := newIndexedStore(t)

	kg, err := Build(context.Background(), s)
	require.NoError(t, err)

	orphans, err := kg.Orphans()
	require.NoError(t, err)

	var found bool
	for _, n := range orphans {
		if n.RelPath == "c.md" {
			found = true
		}
		assert.NotEqual(t, "a.md", n.RelPath)
		assert.NotEqual(t, "b.md", n.RelPath)
	}
	assert.True(t, found)
}

func TestBuild_AdjacentVertices_IsBidirectional(t *testing.T) {
	s, repoID := newIndexedStore(t)

	kg, err := Build(context.Background(), s)
	require.NoError(t, err)

	fromA, err := kg.AdjacentVertices(repoID, "a.md")
	require.NoError(t, err)
	assert.Contains(t, fromA, fmt.Sprintf("%d:b.md", repoID))

	fromB, err := kg.AdjacentVertices(repoID, "b.md")
	require.NoError(t, err)
	assert.Contains(t, fromB, fmt.Sprintf("%d:a.md", repoID))
}

func TestBuildOutline_NestsByLevel(t *testing.T) {
	headings := []store.Heading{
		{Level: 1, Text: "Intro"},
		{Level: 2, Text: "Background"},
		{Level: 2, Text: "Motivation"},
		{Level: 1, Text: "Conclusion"},
	}

	roots := BuildOutline(headings)
	require.Len(t, roots, 2)
	assert.Equal(t, "Intro", roots[0].Text)
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, "Background", roots[0].Children[0].Text)
	assert.Equal(t, "Motivation", roots[0].Children[1].Text)
	assert.Equal(t, "Conclusion", roots[1].Text)
	assert.Empty(t, roots[1].Children)
}

func TestBuildOutline_SkippedLevelAttachesToDeepestOpenAncestor(t *testing.T) {
	headings := []store.Heading{
		{Level: 1, Text: "Top"},
		{Level: 3, Text: "Deep"},
	}

	roots := BuildOutline(headings)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "Deep", roots[0].Children[0].Text)
}

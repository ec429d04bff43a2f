package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_AppliesMigrationsToCurrentVersion(t *testing.T) {
	// Given: a fresh store
	s := openTestStore(t)

	// Then: schema version matches CurrentSchemaVersion
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
}

func TestOpen_RejectsSecondProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s1, err := Open(path)
	require.NoError(t, err)
	defer s1.Close()

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, kerrors.Of(err, kerrors.Conflict))
}

func TestAddRepository_DuplicatePathConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddRepository(ctx, "/tmp/repo-a", "repo-a")
	require.NoError(t, err)

	_, err = s.AddRepository(ctx, "/tmp/repo-a", "repo-a")
	require.Error(t, err)
	assert.True(t, kerrors.Of(err, kerrors.Conflict))
}

func TestAddRemoteRepository_StartsCloning(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repo, err := s.AddRemoteRepository(ctx, "/tmp/remote-repo", "remote-repo", "https://example.com/a/b.git", "main")
	require.NoError(t, err)
	assert.Equal(t, StatusCloning, repo.Status)
	assert.Equal(t, SourceRemote, repo.Source)
}

func TestUpsertFileAndFTSSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repo, err := s.AddRepository(ctx, "/tmp/repo", "repo")
	require.NoError(t, err)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	fileID, err := s.UpsertFile(ctx, tx, repo.ID, "main.rs", "deadbeef", 42, time.Now(), "code/rust",
		`fn main() { println!("Hello"); }`)
	require.NoError(t, err)
	require.NoError(t, s.CommitTx(tx))

	hits, err := s.FTSSearch(ctx, "Hello", "", "", 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, fileID, hits[0].FileID)
	assert.Equal(t, "main.rs", hits[0].RelPath)
	assert.Contains(t, hits[0].Snippet, ">>>Hello<<<")
}

func TestDeleteFiles_CascadesFTSRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repo, err := s.AddRepository(ctx, "/tmp/repo", "repo")
	require.NoError(t, err)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	fileID, err := s.UpsertFile(ctx, tx, repo.ID, "a.txt", "h1", 5, time.Now(), "plaintext", "hello world")
	require.NoError(t, err)
	require.NoError(t, s.CommitTx(tx))

	n, err := s.CountFTSRows(ctx, []int64{fileID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.DeleteFiles(ctx, []int64{fileID}))

	n, err = s.CountFTSRows(ctx, []int64{fileID})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.FileByID(ctx, fileID)
	require.Error(t, err)
	assert.True(t, kerrors.Of(err, kerrors.NotFound))
}

func TestStoreEmbeddings_ReplacesAtomically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repo, err := s.AddRepository(ctx, "/tmp/repo", "repo")
	require.NoError(t, err)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	fileID, err := s.UpsertFile(ctx, tx, repo.ID, "notes.md", "h1", 10, time.Now(), "markdown", "# hi")
	require.NoError(t, err)
	require.NoError(t, s.StoreEmbeddings(ctx, tx, fileID, []Chunk{
		{FileID: fileID, ChunkIndex: 0, StartOff: 0, EndOff: 4, Text: "# hi", Vector: []float32{1, 0, 0}},
	}))
	require.NoError(t, s.CommitTx(tx))

	var seen []VectorCandidate
	require.NoError(t, s.StreamChunks(ctx, "", "", func(c VectorCandidate) error {
		seen = append(seen, c)
		return nil
	}))
	require.Len(t, seen, 1)
	assert.Equal(t, []float32{1, 0, 0}, seen[0].Vector)

	// Re-storing replaces the prior chunk set instead of appending.
	tx2, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, s.StoreEmbeddings(ctx, tx2, fileID, []Chunk{
		{FileID: fileID, ChunkIndex: 0, StartOff: 0, EndOff: 4, Text: "# hi", Vector: []float32{0, 1, 0}},
	}))
	require.NoError(t, s.CommitTx(tx2))

	seen = nil
	require.NoError(t, s.StreamChunks(ctx, "", "", func(c VectorCandidate) error {
		seen = append(seen, c)
		return nil
	}))
	require.Len(t, seen, 1)
	assert.Equal(t, []float32{0, 1, 0}, seen[0].Vector)
}

func TestReplaceMarkdownMetaAndBacklinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repo, err := s.AddRepository(ctx, "/tmp/vault", "vault")
	require.NoError(t, err)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	fileID, err := s.UpsertFile(ctx, tx, repo.ID, "a.md", "h1", 20, time.Now(), "markdown", "See [[b]].")
	require.NoError(t, err)
	require.NoError(t, s.ReplaceMarkdownMeta(ctx, tx, fileID, MarkdownMeta{
		Title: "A",
		Tags:  []string{"note"},
		Links: []Link{{Target: "b", LinkText: "b", Line: 1}},
	}))
	require.NoError(t, s.CommitTx(tx))

	backlinks, err := s.GetBacklinks(ctx, "b")
	require.NoError(t, err)
	require.Len(t, backlinks, 1)
	assert.Equal(t, "a.md", backlinks[0].SourcePath)
	assert.Equal(t, "b", backlinks[0].LinkText)

	meta, err := s.GetMarkdownMeta(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, "A", meta.Title)
	assert.Equal(t, []string{"note"}, meta.Tags)
}

func TestGetBacklinks_NoMatchReturnsEmptyNotError(t *testing.T) {
	s := openTestStore(t)
	backlinks, err := s.GetBacklinks(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, backlinks)
}

func TestStateCheckpointRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.GetState(ctx, StateKeyCheckpointStage)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetState(ctx, StateKeyCheckpointStage, "embedding"))
	v, err = s.GetState(ctx, StateKeyCheckpointStage)
	require.NoError(t, err)
	assert.Equal(t, "embedding", v)

	require.NoError(t, s.ClearState(ctx, StateKeyCheckpointStage))
	v, err = s.GetState(ctx, StateKeyCheckpointStage)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestFTSSearch_RepoAndCategoryFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repoA, err := s.AddRepository(ctx, "/tmp/alpha", "alpha")
	require.NoError(t, err)
	repoB, err := s.AddRepository(ctx, "/tmp/beta", "beta")
	require.NoError(t, err)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	_, err = s.UpsertFile(ctx, tx, repoA.ID, "x.go", "h1", 1, time.Now(), "code/go", "package widget")
	require.NoError(t, err)
	_, err = s.UpsertFile(ctx, tx, repoB.ID, "y.go", "h2", 1, time.Now(), "code/go", "package widget")
	require.NoError(t, err)
	require.NoError(t, s.CommitTx(tx))

	hits, err := s.FTSSearch(ctx, "widget", "alpha", "", 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, repoA.ID, hits[0].RepoID)
}

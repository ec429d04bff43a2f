package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

// Store is the single-writer, multi-reader persistent layer described in
// the data model: repositories, files, FTS content, embedding chunks,
// tags and links all live in one SQLite database guarded by one mutex.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open creates or opens the index database at path, applying any pending
// migrations, and acquires an exclusive process-level file lock guarding
// it against a second process opening the same file concurrently.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, kerrors.New(kerrors.InvalidInput, "store path must not be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kerrors.Wrap(kerrors.IO, "create index directory", err)
	}

	lk := flock.New(path + ".lock")
	locked, err := lk.TryLock()
	if err != nil {
		return nil, kerrors.Wrap(kerrors.IO, "acquire index lock", err)
	}
	if !locked {
		return nil, kerrors.New(kerrors.Conflict, "index is already open by another process")
	}

	dsn := path + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lk.Unlock()
		return nil, kerrors.Wrap(kerrors.Storage, "open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			_ = lk.Unlock()
			return nil, kerrors.Wrap(kerrors.Storage, "set pragma", err)
		}
	}

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		_ = lk.Unlock()
		return nil, kerrors.Wrap(kerrors.Storage, "apply migrations", err)
	}

	return &Store{db: db, path: path, lock: lk}, nil
}

// Close flushes WAL state and releases the index file lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// AddRepository registers a new local repository at the given canonical
// path with status pending.
func (s *Store) AddRepository(ctx context.Context, path, name string) (*Repository, error) {
	return s.addRepository(ctx, path, name, SourceLocal, "", "")
}

// AddRemoteRepository registers a new repository backed by a remote
// origin, with status cloning.
func (s *Store) AddRemoteRepository(ctx context.Context, path, name, url, branch string) (*Repository, error) {
	return s.addRepository(ctx, path, name, SourceRemote, url, branch)
}

func (s *Store) addRepository(ctx context.Context, path, name string, source RepoSource, url, branch string) (*Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = filepath.Base(path)
	}
	status := StatusPending
	if source == SourceRemote {
		status = StatusCloning
	}
	now := time.Now().UTC()
	vaultKind := DetectVaultKind(path)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories(path, name, created_at, status, source, origin_url, branch, vault_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		path, name, now.Format(time.RFC3339), string(status), string(source), url, branch, string(vaultKind))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, kerrors.New(kerrors.Conflict, fmt.Sprintf("repository already indexed: %s", path))
		}
		return nil, kerrors.Wrap(kerrors.Storage, "insert repository", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "read repository id", err)
	}

	return &Repository{
		ID:        id,
		Path:      path,
		Name:      name,
		CreatedAt: now,
		Status:    status,
		Source:    source,
		OriginURL: url,
		Branch:    branch,
		VaultKind: vaultKind,
	}, nil
}

// RefreshVaultKind re-detects the organisational convention at path and
// persists it for repoID. Indexer.Ingest calls it on every re-index of an
// already-registered repository, so a directory that had no content at
// registration time (e.g. a clone not yet on disk) is classified once
// its content is there.
func (s *Store) RefreshVaultKind(ctx context.Context, repoID int64, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := DetectVaultKind(path)
	_, err := s.db.ExecContext(ctx, `UPDATE repositories SET vault_kind = ? WHERE id = ?`, string(kind), repoID)
	if err != nil {
		return kerrors.Wrap(kerrors.Storage, "update vault kind", err)
	}
	return nil
}

// GetRepositoryByPath returns the repository registered at path, or
// kerrors.NotFound if none exists.
func (s *Store) GetRepositoryByPath(ctx context.Context, path string) (*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, name, created_at, last_indexed, file_count, total_bytes,
		       status, source, origin_url, branch, last_synced, vault_kind
		FROM repositories WHERE path = ?`, path)
	return scanRepository(row)
}

// GetRepositoryByID returns the repository with the given id, or
// kerrors.NotFound if none exists.
func (s *Store) GetRepositoryByID(ctx context.Context, id int64) (*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, name, created_at, last_indexed, file_count, total_bytes,
		       status, source, origin_url, branch, last_synced, vault_kind
		FROM repositories WHERE id = ?`, id)
	return scanRepository(row)
}

// ListRepositories returns every registered repository.
func (s *Store) ListRepositories(ctx context.Context) ([]*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, name, created_at, last_indexed, file_count, total_bytes,
		       status, source, origin_url, branch, last_synced, vault_kind
		FROM repositories ORDER BY name`)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "list repositories", err)
	}
	defer rows.Close()

	var out []*Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, repo)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (*Repository, error) {
	var (
		r                        Repository
		createdAt                string
		lastIndexed, lastSynced  sql.NullString
		status, source, vault    string
	)
	err := row.Scan(&r.ID, &r.Path, &r.Name, &createdAt, &lastIndexed, &r.FileCount, &r.TotalBytes,
		&status, &source, &r.OriginURL, &r.Branch, &lastSynced, &vault)
	if err == sql.ErrNoRows {
		return nil, kerrors.New(kerrors.NotFound, "repository not found")
	}
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "scan repository", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if lastIndexed.Valid {
		r.LastIndexed, _ = time.Parse(time.RFC3339, lastIndexed.String)
	}
	if lastSynced.Valid {
		r.LastSynced, _ = time.Parse(time.RFC3339, lastSynced.String)
	}
	r.Status = RepoStatus(status)
	r.Source = RepoSource(source)
	r.VaultKind = VaultKind(vault)
	if r.VaultKind == "" {
		r.VaultKind = VaultGeneric
	}
	return &r, nil
}

// SetRepositoryStatus updates only the status column.
func (s *Store) SetRepositoryStatus(ctx context.Context, repoID int64, status RepoStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE repositories SET status = ? WHERE id = ?`, string(status), repoID)
	if err != nil {
		return kerrors.Wrap(kerrors.Storage, "update repository status", err)
	}
	return nil
}

// FinishIndexing records final counters after a successful Ingest.
func (s *Store) FinishIndexing(ctx context.Context, repoID int64, fileCount int, totalBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE repositories
		SET status = ?, file_count = ?, total_bytes = ?, last_indexed = ?
		WHERE id = ?`,
		string(StatusReady), fileCount, totalBytes, time.Now().UTC().Format(time.RFC3339), repoID)
	if err != nil {
		return kerrors.Wrap(kerrors.Storage, "finish indexing", err)
	}
	return nil
}

// RemoveRepository deletes a repository's FTS rows explicitly, then the
// repository itself and, via ON DELETE CASCADE, all of its files,
// embeddings, tags, links and markdown metadata.
func (s *Store) RemoveRepository(ctx context.Context, repoID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileIDs, err := s.fileIDsForRepoLocked(ctx, repoID)
	if err != nil {
		return err
	}
	if len(fileIDs) > 0 {
		if err := s.deleteFTSForFilesLocked(ctx, fileIDs); err != nil {
			return err
		}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, repoID); err != nil {
		return kerrors.Wrap(kerrors.Storage, "delete repository", err)
	}
	return nil
}

func (s *Store) fileIDsForRepoLocked(ctx context.Context, repoID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM files WHERE repository_id = ?`, repoID)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "list files for repo", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan file id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFiles returns every File row belonging to a repository, keyed by
// relative path for diffing against a filesystem walk.
func (s *Store) ListFiles(ctx context.Context, repoID int64) (map[string]*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repository_id, rel_path, hash, size, mod_time, category
		FROM files WHERE repository_id = ?`, repoID)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "list files", err)
	}
	defer rows.Close()

	out := make(map[string]*File)
	for rows.Next() {
		var f File
		var modTime string
		if err := rows.Scan(&f.ID, &f.RepositoryID, &f.RelPath, &f.Hash, &f.Size, &modTime, &f.Category); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan file", err)
		}
		f.ModTime, _ = time.Parse(time.RFC3339, modTime)
		out[f.RelPath] = &f
	}
	return out, rows.Err()
}

// UpsertFile inserts a File row plus its FTS row in one statement pair.
// Callers are expected to have already deleted any prior row for this
// path (see DeleteFiles) so this never needs to branch on existence.
func (s *Store) UpsertFile(ctx context.Context, tx *sql.Tx, repoID int64, relPath, hash string, size int64, modTime time.Time, category, content string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO files(repository_id, rel_path, hash, size, mod_time, category)
		VALUES (?, ?, ?, ?, ?, ?)`,
		repoID, relPath, hash, size, modTime.UTC().Format(time.RFC3339Nano), category)
	if err != nil {
		return 0, kerrors.Wrap(kerrors.Storage, "insert file", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return 0, kerrors.Wrap(kerrors.Storage, "read file id", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO fts_content(file_id, content) VALUES (?, ?)`, fileID, content); err != nil {
		return 0, kerrors.Wrap(kerrors.Storage, "insert fts row", err)
	}
	return fileID, nil
}

// DeleteFiles removes the given files' FTS rows explicitly, then the File
// rows themselves and, via cascade, their embedding chunks, tags, links
// and markdown metadata.
func (s *Store) DeleteFiles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteFTSForFilesLocked(ctx, ids); err != nil {
		return err
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := fmt.Sprintf(`DELETE FROM files WHERE id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return kerrors.Wrap(kerrors.Storage, "delete files", err)
	}
	return nil
}

func (s *Store) deleteFTSForFilesLocked(ctx context.Context, ids []int64) error {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := fmt.Sprintf(`DELETE FROM fts_content WHERE file_id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return kerrors.Wrap(kerrors.Storage, "delete fts rows", err)
	}
	return nil
}

// CountFTSRows returns the number of fts_content rows whose file_id is in
// ids — used by tests to verify the FTS-delete invariant.
func (s *Store) CountFTSRows(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := fmt.Sprintf(`SELECT COUNT(*) FROM fts_content WHERE file_id IN (%s)`, strings.Join(placeholders, ","))
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, kerrors.Wrap(kerrors.Storage, "count fts rows", err)
	}
	return n, nil
}

// BeginTx starts a transaction for the Indexer's batched writes.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	s.mu.Lock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return nil, kerrors.Wrap(kerrors.Storage, "begin transaction", err)
	}
	return tx, nil
}

// CommitTx commits a transaction started with BeginTx and releases the
// write lock acquired there.
func (s *Store) CommitTx(tx *sql.Tx) error {
	defer s.mu.Unlock()
	if err := tx.Commit(); err != nil {
		return kerrors.Wrap(kerrors.Storage, "commit transaction", err)
	}
	return nil
}

// RollbackTx rolls back a transaction started with BeginTx and releases
// the write lock acquired there.
func (s *Store) RollbackTx(tx *sql.Tx) error {
	defer s.mu.Unlock()
	return tx.Rollback()
}

// StoreEmbeddings atomically replaces all embedding chunks for a file:
// prior chunks are deleted before the new set is inserted.
func (s *Store) StoreEmbeddings(ctx context.Context, tx *sql.Tx, fileID int64, chunks []Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM embedding_chunks WHERE file_id = ?`, fileID); err != nil {
		return kerrors.Wrap(kerrors.Storage, "clear old chunks", err)
	}
	for _, c := range chunks {
		blob := encodeVector(c.Vector)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO embedding_chunks(file_id, chunk_index, start_off, end_off, text, vector)
			VALUES (?, ?, ?, ?, ?, ?)`,
			fileID, c.ChunkIndex, c.StartOff, c.EndOff, c.Text, blob); err != nil {
			return kerrors.Wrap(kerrors.Storage, "insert chunk", err)
		}
	}
	return nil
}

// ReplaceMarkdownMeta atomically replaces the tags, links and markdown
// metadata row for a file.
func (s *Store) ReplaceMarkdownMeta(ctx context.Context, tx *sql.Tx, fileID int64, meta MarkdownMeta) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE file_id = ?`, fileID); err != nil {
		return kerrors.Wrap(kerrors.Storage, "clear old tags", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE source_file_id = ?`, fileID); err != nil {
		return kerrors.Wrap(kerrors.Storage, "clear old links", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM markdown_meta WHERE file_id = ?`, fileID); err != nil {
		return kerrors.Wrap(kerrors.Storage, "clear old markdown meta", err)
	}

	for _, tag := range meta.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags(file_id, tag_name) VALUES (?, ?)`, fileID, tag); err != nil {
			return kerrors.Wrap(kerrors.Storage, "insert tag", err)
		}
	}
	for _, link := range meta.Links {
		if _, err := tx.ExecContext(ctx, `INSERT INTO links(source_file_id, target, link_text, line) VALUES (?, ?, ?, ?)`,
			fileID, link.Target, link.LinkText, link.Line); err != nil {
			return kerrors.Wrap(kerrors.Storage, "insert link", err)
		}
	}

	headingsJSON := encodeHeadings(meta.Headings)
	if _, err := tx.ExecContext(ctx, `INSERT INTO markdown_meta(file_id, title, headings) VALUES (?, ?, ?)`,
		fileID, meta.Title, headingsJSON); err != nil {
		return kerrors.Wrap(kerrors.Storage, "insert markdown meta", err)
	}
	return nil
}

// GetBacklinks returns every recorded Link whose target matches name,
// resolved back to its owning File's repository-relative path.
func (s *Store) GetBacklinks(ctx context.Context, name string) ([]Backlink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rel_path, f.repository_id, l.link_text, l.line
		FROM links l
		JOIN files f ON f.id = l.source_file_id
		WHERE l.target = ?
		ORDER BY f.rel_path`, name)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "query backlinks", err)
	}
	defer rows.Close()

	var out []Backlink
	for rows.Next() {
		var b Backlink
		if err := rows.Scan(&b.SourcePath, &b.RepositoryID, &b.LinkText, &b.Line); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan backlink", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetMarkdownMeta fetches the title, headings, tags and links for a file.
// Returns kerrors.NotFound if the file has no markdown metadata row.
func (s *Store) GetMarkdownMeta(ctx context.Context, fileID int64) (*MarkdownMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var title, headingsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT title, headings FROM markdown_meta WHERE file_id = ?`, fileID).
		Scan(&title, &headingsJSON)
	if err == sql.ErrNoRows {
		return nil, kerrors.New(kerrors.NotFound, "no markdown metadata for file")
	}
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "scan markdown meta", err)
	}

	tagRows, err := s.db.QueryContext(ctx, `SELECT tag_name FROM tags WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "query tags", err)
	}
	defer tagRows.Close()
	var tags []string
	for tagRows.Next() {
		var t string
		if err := tagRows.Scan(&t); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan tag", err)
		}
		tags = append(tags, t)
	}

	linkRows, err := s.db.QueryContext(ctx, `SELECT target, link_text, line FROM links WHERE source_file_id = ?`, fileID)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "query links", err)
	}
	defer linkRows.Close()
	var links []Link
	for linkRows.Next() {
		var l Link
		l.SourceFileID = fileID
		if err := linkRows.Scan(&l.Target, &l.LinkText, &l.Line); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan link", err)
		}
		links = append(links, l)
	}

	return &MarkdownMeta{
		FileID:   fileID,
		Title:    title,
		Tags:     tags,
		Links:    links,
		Headings: decodeHeadings(headingsJSON),
	}, nil
}

// AllLinks returns every link row for knowledge-graph construction.
func (s *Store) AllLinks(ctx context.Context) ([]Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT source_file_id, target, link_text, line FROM links`)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "query links", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.SourceFileID, &l.Target, &l.LinkText, &l.Line); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan link", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AllTags returns every tag row for knowledge-graph construction.
func (s *Store) AllTags(ctx context.Context) (map[int64][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT file_id, tag_name FROM tags`)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "query tags", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var fileID int64
		var tag string
		if err := rows.Scan(&fileID, &tag); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan tag", err)
		}
		out[fileID] = append(out[fileID], tag)
	}
	return out, rows.Err()
}

// FileByID fetches a single File row by id.
func (s *Store) FileByID(ctx context.Context, id int64) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f File
	var modTime string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, repository_id, rel_path, hash, size, mod_time, category
		FROM files WHERE id = ?`, id).Scan(&f.ID, &f.RepositoryID, &f.RelPath, &f.Hash, &f.Size, &modTime, &f.Category)
	if err == sql.ErrNoRows {
		return nil, kerrors.New(kerrors.NotFound, "file not found")
	}
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "scan file", err)
	}
	f.ModTime, _ = time.Parse(time.RFC3339, modTime)
	return &f, nil
}

// FTSSearch runs an FTS5 MATCH query, filtered by repo name substring and
// exact category, ranked by bm25 with a snippet window of 64 tokens using
// the >>> / <<< delimiter convention.
func (s *Store) FTSSearch(ctx context.Context, query string, repoFilter, categoryFilter string, limit, offset int) ([]FTSHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT f.id, f.rel_path, f.repository_id, f.category, bm25(fts_content) AS score,
		       snippet(fts_content, 0, '>>>', '<<<', '...', 64)
		FROM fts_content
		JOIN files f ON f.id = fts_content.file_id
		JOIN repositories r ON r.id = f.repository_id
		WHERE fts_content MATCH ?`
	args := []any{query}

	if repoFilter != "" {
		q += " AND r.name LIKE ?"
		args = append(args, "%"+repoFilter+"%")
	}
	if categoryFilter != "" {
		q += " AND f.category = ?"
		args = append(args, categoryFilter)
	}
	q += " ORDER BY score LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return nil, kerrors.Wrap(kerrors.InvalidInput, "malformed fts query", err)
		}
		return nil, kerrors.Wrap(kerrors.Storage, "fts search", err)
	}
	defer rows.Close()

	var out []FTSHit
	for rows.Next() {
		var h FTSHit
		var score float64
		if err := rows.Scan(&h.FileID, &h.RelPath, &h.RepoID, &h.Category, &score, &h.Snippet); err != nil {
			return nil, kerrors.Wrap(kerrors.Storage, "scan fts hit", err)
		}
		h.Score = -score // fts5 bm25() returns negative values, lower = better
		out = append(out, h)
	}
	return out, rows.Err()
}

// StreamChunks streams every embedding chunk matching the optional repo
// and category filters so the Searcher can compute cosine similarity in
// memory. The Store itself never computes similarity.
func (s *Store) StreamChunks(ctx context.Context, repoFilter, categoryFilter string, fn func(VectorCandidate) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT ec.id, ec.file_id, f.rel_path, f.repository_id, f.category, ec.text, ec.vector
		FROM embedding_chunks ec
		JOIN files f ON f.id = ec.file_id
		JOIN repositories r ON r.id = f.repository_id
		WHERE 1=1`
	var args []any
	if repoFilter != "" {
		q += " AND r.name LIKE ?"
		args = append(args, "%"+repoFilter+"%")
	}
	if categoryFilter != "" {
		q += " AND f.category = ?"
		args = append(args, categoryFilter)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return kerrors.Wrap(kerrors.Storage, "stream chunks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c VectorCandidate
		var blob []byte
		if err := rows.Scan(&c.ChunkID, &c.FileID, &c.RelPath, &c.RepoID, &c.Category, &c.Text, &blob); err != nil {
			return kerrors.Wrap(kerrors.Storage, "scan chunk", err)
		}
		c.Vector = decodeVector(blob)
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetState reads a checkpoint value, returning "" if unset.
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", kerrors.Wrap(kerrors.Storage, "get state", err)
	}
	return v, nil
}

// SetState upserts a checkpoint value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return kerrors.Wrap(kerrors.Storage, "set state", err)
	}
	return nil
}

// ClearState removes a checkpoint key, used once a resumable operation
// completes successfully.
func (s *Store) ClearState(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
		return kerrors.Wrap(kerrors.Storage, "clear state", err)
	}
	return nil
}

// SchemaVersion reports the currently applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&v); err != nil {
		return 0, kerrors.Wrap(kerrors.Storage, "read schema version", err)
	}
	return v, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// Package index implements the incremental ingest algorithm: walk a
// repository root, diff against the Store, and write inserts/updates/
// deletes in batched transactions, feeding the Classifier, the markdown
// extractor and the Embedder along the way.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urbanisierung/knowledge-index/internal/classify"
	"github.com/urbanisierung/knowledge-index/internal/embed"
	"github.com/urbanisierung/knowledge-index/internal/gitignore"
	"github.com/urbanisierung/knowledge-index/internal/kerrors"
	"github.com/urbanisierung/knowledge-index/internal/markdown"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

// Progress is reported after each processed file so a caller (CLI, TUI,
// MCP collaborator) can render a live counter. It carries cumulative
// counts, not deltas.
type Progress struct {
	Scanned int
	Total   int
}

// ProgressFunc receives ingest progress updates. It may be called from
// the same goroutine Ingest runs on; callers must not block.
type ProgressFunc func(Progress)

// Options configures one Ingest call.
type Options struct {
	DisplayName          string
	MaxFileSize          int64
	IgnorePatterns       []string
	BatchSize            int
	EnableSemanticSearch bool
	IndexCodeBlocks      bool
	StripMarkdownSyntax  bool
	OnProgress           ProgressFunc
}

// Result summarises one Ingest call's effect.
type Result struct {
	Added     int
	Updated   int
	Deleted   int
	Unchanged int
	Skipped   int
	TotalBytes int64
	Elapsed   time.Duration
}

const defaultBatchSize = 100

// Indexer drives the incremental algorithm against one Store.
type Indexer struct {
	store    *store.Store
	embedder *embed.Embedder
}

// New builds an Indexer. embedder may be nil when semantic search is
// disabled; Ingest checks Options.EnableSemanticSearch before using it.
func New(s *store.Store, embedder *embed.Embedder) *Indexer {
	return &Indexer{store: s, embedder: embedder}
}

// Ingest walks root, diffs it against the Store, and writes the result in
// batched transactions. If a Repository is already registered at root,
// this call updates it; otherwise one is created first. Re-running Ingest
// against unchanged content is idempotent: Added, Updated and Deleted are
// zero and every indexed file is counted as Unchanged.
func (idx *Indexer) Ingest(ctx context.Context, root string, opts Options) (*Result, error) {
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.IO, "stat repository root", err)
	}
	if !info.IsDir() {
		return nil, kerrors.New(kerrors.InvalidInput, "repository root is not a directory")
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.IO, "canonicalise repository root", err)
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 10 * 1024 * 1024
	}

	repo, err := idx.store.GetRepositoryByPath(ctx, root)
	if err != nil && !kerrors.Of(err, kerrors.NotFound) {
		return nil, err
	}
	if repo == nil {
		repo, err = idx.store.AddRepository(ctx, root, opts.DisplayName)
		if err != nil {
			return nil, err
		}
	} else if err := idx.store.RefreshVaultKind(ctx, repo.ID, root); err != nil {
		return nil, err
	}
	if err := idx.store.SetRepositoryStatus(ctx, repo.ID, store.StatusIndexing); err != nil {
		return nil, err
	}

	result, ingestErr := idx.runIngest(ctx, repo.ID, root, opts)
	if ingestErr != nil {
		_ = idx.store.SetRepositoryStatus(ctx, repo.ID, store.StatusError)
		return result, ingestErr
	}

	if err := idx.store.FinishIndexing(ctx, repo.ID, result.Added+result.Updated+result.Unchanged, result.TotalBytes); err != nil {
		return result, err
	}
	_ = idx.store.ClearState(ctx, store.StateKeyCheckpointRepoID)
	_ = idx.store.ClearState(ctx, store.StateKeyCheckpointStage)
	_ = idx.store.ClearState(ctx, store.StateKeyCheckpointTotal)
	_ = idx.store.ClearState(ctx, store.StateKeyCheckpointDone)
	result.Elapsed = time.Since(start)
	return result, nil
}

func (idx *Indexer) runIngest(ctx context.Context, repoID int64, root string, opts Options) (*Result, error) {
	classifier := classify.New(opts.MaxFileSize, opts.IgnorePatterns)

	existing, err := idx.store.ListFiles(ctx, repoID)
	if err != nil {
		return nil, err
	}

	current, excluded, err := walkDir(root, classifier)
	if err != nil {
		return nil, err
	}

	var toDelete []int64
	for relPath, f := range existing {
		if _, ok := current[relPath]; !ok {
			toDelete = append(toDelete, f.ID)
		}
	}
	if len(toDelete) > 0 {
		if err := idx.store.DeleteFiles(ctx, toDelete); err != nil {
			return nil, err
		}
	}

	result := &Result{Deleted: len(toDelete), Skipped: excluded}

	total := len(current)
	_ = idx.store.SetState(ctx, store.StateKeyCheckpointRepoID, strconv.FormatInt(repoID, 10))
	_ = idx.store.SetState(ctx, store.StateKeyCheckpointStage, "embedding")
	_ = idx.store.SetState(ctx, store.StateKeyCheckpointTotal, strconv.Itoa(total))

	var batch []walkedFile
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := idx.processBatch(ctx, repoID, batch, opts, result); err != nil {
			return err
		}
		batch = batch[:0]
		_ = idx.store.SetState(ctx, store.StateKeyCheckpointDone, strconv.Itoa(result.Added+result.Updated+result.Unchanged))
		return nil
	}

	scanned := 0
	for relPath, wf := range current {
		prior, existed := existing[relPath]

		stat, statErr := os.Stat(wf.absPath)
		if statErr != nil {
			result.Skipped++
			scanned++
			continue
		}
		if stat.Size() > opts.MaxFileSize {
			result.Skipped++
			scanned++
			continue
		}

		if existed && !stat.ModTime().After(prior.ModTime) && stat.Size() == prior.Size {
			result.Unchanged++
			result.TotalBytes += stat.Size()
			scanned++
			if opts.OnProgress != nil {
				opts.OnProgress(Progress{Scanned: scanned, Total: total})
			}
			continue
		}

		wf.isUpdate = existed
		if existed {
			if err := idx.store.DeleteFiles(ctx, []int64{prior.ID}); err != nil {
				return nil, err
			}
		}

		batch = append(batch, wf)
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}

		scanned++
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Scanned: scanned, Total: total})
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return result, nil
}

type walkedFile struct {
	relPath  string
	absPath  string
	category classify.Category
	isUpdate bool
}

// walkDir enumerates every file under root that survives .gitignore and
// the Classifier's ignore-pattern/extension/size check, plus a count of
// files the Classifier excluded at enumeration time. That count feeds
// Result.Skipped in runIngest — an up-front exclusion is still a skip.
// Files matched by .gitignore are left out without being counted.
func walkDir(root string, classifier *classify.Classifier) (map[string]walkedFile, int, error) {
	ignore := loadGitignore(root)

	out := make(map[string]walkedFile)
	excluded := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // per-path walk errors are not fatal to the whole walk
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if filepath.Base(rel) == ".git" || ignore.Match(filepath.ToSlash(rel), true) {
				return fs.SkipDir
			}
			return nil
		}
		if ignore.Match(filepath.ToSlash(rel), false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		decision := classifier.Classify(rel, info.Size(), nil)
		if !decision.Include {
			excluded++
			return nil
		}
		out[rel] = walkedFile{relPath: rel, absPath: path}
		return nil
	})
	if err != nil {
		return nil, 0, kerrors.Wrap(kerrors.IO, "walk repository directory", err)
	}
	return out, excluded, nil
}

// loadGitignore builds a single Matcher over every .gitignore file found
// under root, each scoped to its own directory so a nested .gitignore's
// patterns never leak outside it. A repository with no .gitignore files
// gets an empty, always-pass Matcher.
func loadGitignore(root string) *gitignore.Matcher {
	m := gitignore.New()
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}
		base, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			return nil
		}
		if base == "." {
			base = ""
		}
		_ = m.AddFromFile(path, filepath.ToSlash(base))
		return nil
	})
	return m
}

// processBatch reads, classifies, hashes, extracts and (optionally)
// embeds every file in one batch, committing a single transaction.
func (idx *Indexer) processBatch(ctx context.Context, repoID int64, batch []walkedFile, opts Options, result *Result) error {
	tx, err := idx.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = idx.store.RollbackTx(tx)
		}
	}()

	classifier := classify.New(opts.MaxFileSize, opts.IgnorePatterns)

	for _, wf := range batch {
		content, err := os.ReadFile(wf.absPath)
		if err != nil {
			result.Skipped++
			continue
		}

		decision := classifier.Classify(wf.relPath, int64(len(content)), content)
		if !decision.Include {
			result.Skipped++
			continue
		}

		stat, err := os.Stat(wf.absPath)
		if err != nil {
			result.Skipped++
			continue
		}

		hash := contentHash(content)
		fileContent := string(content)

		fileID, err := idx.store.UpsertFile(ctx, tx, repoID, wf.relPath, hash, stat.Size(), stat.ModTime(), string(decision.Category), fileContent)
		if err != nil {
			return err
		}

		if decision.Category == classify.CategoryMarkdown {
			meta := markdown.Extract(fileContent, opts.IndexCodeBlocks)
			links := make([]store.Link, 0, len(meta.Links))
			for _, l := range meta.Links {
				links = append(links, store.Link{Target: l.Target, LinkText: l.Display, Line: l.Line})
			}
			headings := make([]store.Heading, 0, len(meta.Headings))
			for _, h := range meta.Headings {
				headings = append(headings, store.Heading{Level: h.Level, Text: h.Text})
			}
			if err := idx.store.ReplaceMarkdownMeta(ctx, tx, fileID, store.MarkdownMeta{
				Title:    meta.Title,
				Tags:     meta.Tags,
				Links:    links,
				Headings: headings,
			}); err != nil {
				return err
			}
		}

		if opts.EnableSemanticSearch && idx.embedder != nil {
			spans := embed.ChunkContent(fileContent, embed.DefaultMaxChars, embed.DefaultOverlapChars)
			embedded, err := idx.embedder.EmbedChunks(ctx, spans)
			if err != nil {
				return kerrors.Wrap(kerrors.CapabilityUnavailable, "embed chunks", err)
			}
			chunks := make([]store.Chunk, len(embedded))
			for i, e := range embedded {
				chunks[i] = store.Chunk{
					FileID:     fileID,
					ChunkIndex: e.Index,
					StartOff:   e.Start,
					EndOff:     e.End,
					Text:       e.Text,
					Vector:     e.Vector,
				}
			}
			if err := idx.store.StoreEmbeddings(ctx, tx, fileID, chunks); err != nil {
				return err
			}
		}

		if wf.isUpdate {
			result.Updated++
		} else {
			result.Added++
		}
		result.TotalBytes += stat.Size()
	}

	if err := idx.store.CommitTx(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Resume reports whether a prior Ingest for repoID left a checkpoint
// behind (state.checkpoint.repo_id matches), meaning the run was
// interrupted mid-embedding and can be safely re-invoked: Ingest's own
// idempotent-rerun behaviour (unchanged hash/size/mtime -> skip) makes
// this safe without any special-cased replay logic.
func (idx *Indexer) Resume(ctx context.Context, repoID int64) (bool, error) {
	v, err := idx.store.GetState(ctx, store.StateKeyCheckpointRepoID)
	if err != nil {
		return false, err
	}
	if v == "" {
		return false, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false, nil
	}
	return id == repoID, nil
}

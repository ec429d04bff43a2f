// Package store provides the single-writer, multi-reader persistent layer
// for repositories, files, full-text search, embeddings, tags and links.
// It is backed by a single SQLite database file using modernc.org/sqlite
// (pure Go, no CGO) with an FTS5 virtual table for lexical search.
package store

import "time"

// RepoStatus is the lifecycle state of a Repository.
type RepoStatus string

const (
	StatusPending  RepoStatus = "pending"
	StatusIndexing RepoStatus = "indexing"
	StatusReady    RepoStatus = "ready"
	StatusError    RepoStatus = "error"
	StatusCloning  RepoStatus = "cloning"
	StatusSyncing  RepoStatus = "syncing"
)

// RepoSource distinguishes a locally-rooted repository from one backed by
// a remote origin.
type RepoSource string

const (
	SourceLocal  RepoSource = "local"
	SourceRemote RepoSource = "remote"
)

// VaultKind classifies the organisational convention of a knowledge base,
// used only as a display hint — it never changes indexing behaviour.
type VaultKind string

const (
	VaultGeneric    VaultKind = "generic"
	VaultObsidian   VaultKind = "obsidian-style"
	VaultOutliner   VaultKind = "outliner-style"
	VaultHierarchy  VaultKind = "hierarchical-notes"
)

// Repository is the root entity owning a tree of Files.
type Repository struct {
	ID           int64
	Path         string
	Name         string
	CreatedAt    time.Time
	LastIndexed  time.Time
	LastSynced   time.Time
	FileCount    int
	TotalBytes   int64
	Status       RepoStatus
	Source       RepoSource
	OriginURL    string
	Branch       string
	VaultKind    VaultKind
}

// File is a single indexed file owned by a Repository.
type File struct {
	ID           int64
	RepositoryID int64
	RelPath      string
	Hash         string
	Size         int64
	ModTime      time.Time
	Category     string
}

// Chunk is an embedding unit: a bounded substring of a File's content plus
// its vector, stored as a raw little-endian f32 blob.
type Chunk struct {
	ID         int64
	FileID     int64
	ChunkIndex int
	StartOff   int
	EndOff     int
	Text       string
	Vector     []float32
}

// MarkdownMeta holds the derived metadata for a markdown-categorised File.
type MarkdownMeta struct {
	FileID int64
	Title  string
	Tags   []string
	Links  []Link
	// Headings is ordered as encountered, level 1-6.
	Headings []Heading
}

// Heading is a single ATX heading extracted from markdown content.
type Heading struct {
	Level int
	Text  string
}

// Link is an outgoing wiki-link from one File to a target name that may or
// may not resolve to an existing File.
type Link struct {
	SourceFileID int64
	Target       string
	LinkText     string
	Line         int // 0 means unknown
}

// Backlink is a resolved reverse-link record returned by GetBacklinks.
type Backlink struct {
	SourcePath   string
	RepositoryID int64
	LinkText     string
	Line         int
}

// FTSHit is one lexical search result row.
type FTSHit struct {
	FileID   int64
	RelPath  string
	RepoID   int64
	Category string
	Score    float64
	Snippet  string
}

// VectorCandidate is a chunk streamed from the Store for in-memory cosine
// scoring by the Searcher. The Store never computes similarity itself.
type VectorCandidate struct {
	ChunkID  int64
	FileID   int64
	RelPath  string
	RepoID   int64
	Category string
	Text     string
	Vector   []float32
}

// State keys used by the small key/value checkpoint table that records an
// Ingest's progress. An interrupted run is detected with Indexer.Resume
// and recovered by re-running Ingest, which walks the filesystem again
// and leaves files already unchanged in the Store as they are.
const (
	StateKeyCheckpointStage   = "checkpoint.stage"
	StateKeyCheckpointTotal   = "checkpoint.total"
	StateKeyCheckpointDone    = "checkpoint.embedded_so_far"
	StateKeyCheckpointRepoID  = "checkpoint.repo_id"
)

// CurrentSchemaVersion is the schema version this build expects. Opening a
// store initialised at an older version applies migrations in order.
const CurrentSchemaVersion = 3

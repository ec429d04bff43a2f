package store

import (
	"database/sql"
	"fmt"
)

// migration is one forward-only numbered schema step. Migrations never
// drop or rewrite rows; they only add tables or columns.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS repositories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	last_indexed TEXT,
	file_count INTEGER NOT NULL DEFAULT 0,
	total_bytes INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	source TEXT NOT NULL DEFAULT 'local'
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repository_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	rel_path TEXT NOT NULL,
	hash TEXT NOT NULL,
	size INTEGER NOT NULL,
	mod_time TEXT NOT NULL,
	category TEXT NOT NULL,
	UNIQUE(repository_id, rel_path)
);
CREATE INDEX IF NOT EXISTS idx_files_repo ON files(repository_id);

CREATE VIRTUAL TABLE IF NOT EXISTS fts_content USING fts5(
	file_id UNINDEXED,
	content,
	tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS tags (
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	tag_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tags_file ON tags(file_id);
CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(tag_name);

CREATE TABLE IF NOT EXISTS links (
	source_file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	target TEXT NOT NULL,
	link_text TEXT NOT NULL,
	line INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_file_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);

CREATE TABLE IF NOT EXISTS markdown_meta (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	title TEXT NOT NULL DEFAULT '',
	headings TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS embedding_chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	start_off INTEGER NOT NULL,
	end_off INTEGER NOT NULL,
	text TEXT NOT NULL,
	vector BLOB NOT NULL,
	UNIQUE(file_id, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_chunks_file ON embedding_chunks(file_id);
`,
	},
	{
		version: 3,
		sql: `
ALTER TABLE repositories ADD COLUMN origin_url TEXT NOT NULL DEFAULT '';
ALTER TABLE repositories ADD COLUMN branch TEXT NOT NULL DEFAULT '';
ALTER TABLE repositories ADD COLUMN last_synced TEXT;
ALTER TABLE repositories ADD COLUMN vault_kind TEXT NOT NULL DEFAULT 'generic';
`,
	},
}

// applyMigrations compares the stored schema version against
// CurrentSchemaVersion and runs any pending migrations in order, inside a
// single transaction per step.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		return fmt.Errorf("count schema_version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return fmt.Errorf("seed schema_version: %w", err)
		}
	}

	var current int
	if err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version = ?`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bump schema_version to %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		current = m.version
	}

	return nil
}

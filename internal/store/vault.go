package store

import (
	"os"
	"path/filepath"
)

// DetectVaultKind inspects path for the marker files of a known
// note-taking convention and classifies it accordingly. It is a display
// hint only — it never changes which files Ingest walks or indexes.
func DetectVaultKind(path string) VaultKind {
	if isDir(filepath.Join(path, ".obsidian")) {
		return VaultObsidian
	}
	if isDir(filepath.Join(path, "logseq")) {
		return VaultOutliner
	}
	if isFile(filepath.Join(path, "dendron.yml")) || isFile(filepath.Join(path, "dendron.code-workspace")) {
		return VaultHierarchy
	}
	return VaultGeneric
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

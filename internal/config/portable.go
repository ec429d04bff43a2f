package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

// currentPortableVersion is the only version this build accepts on
// import. An unknown version number is a fatal error per spec.md §6.
const currentPortableVersion = 1

// RepoKind distinguishes a remote portable repository entry from a local
// one.
type RepoKind string

const (
	RepoRemote RepoKind = "remote"
	RepoLocal  RepoKind = "local"
)

// PortableRepository is one entry in a portable document's repository
// list.
type PortableRepository struct {
	Type   RepoKind `yaml:"type" json:"type"`
	URL    string   `yaml:"url,omitempty" json:"url,omitempty"`
	Branch string   `yaml:"branch,omitempty" json:"branch,omitempty"`
	Path   string   `yaml:"path,omitempty" json:"path,omitempty"`
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
}

// PortableSettings is the subset of Config exposed for export/import; an
// omitted field leaves the importing machine's own setting untouched.
type PortableSettings struct {
	MaxFileSizeMB        *int     `yaml:"max_file_size_mb,omitempty" json:"max_file_size_mb,omitempty"`
	EnableSemanticSearch *bool    `yaml:"enable_semantic_search,omitempty" json:"enable_semantic_search,omitempty"`
	DefaultSearchMode    string   `yaml:"default_search_mode,omitempty" json:"default_search_mode,omitempty"`
	IgnorePatterns       []string `yaml:"ignore_patterns,omitempty" json:"ignore_patterns,omitempty"`
}

// Portable is the full export/import document: a version tag, the set of
// repositories to (re)register, and a sparse settings overlay.
type Portable struct {
	Version      int                  `yaml:"version" json:"version"`
	Repositories []PortableRepository `yaml:"repositories" json:"repositories"`
	Settings     PortableSettings     `yaml:"settings" json:"settings"`
}

// NewPortable builds an export document at the current version.
func NewPortable(repos []PortableRepository, settings PortableSettings) Portable {
	return Portable{Version: currentPortableVersion, Repositories: repos, Settings: settings}
}

// Export serializes p to path, choosing YAML or JSON by the file
// extension (.json selects JSON; anything else selects YAML).
func Export(p Portable, path string) error {
	var data []byte
	var err error
	if isJSONPath(path) {
		data, err = json.MarshalIndent(p, "", "  ")
	} else {
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return kerrors.Wrap(kerrors.Storage, "marshal portable document", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kerrors.Wrap(kerrors.IO, "write portable document", err)
	}
	return nil
}

// Import reads and validates a portable document from path. An unknown
// version number is rejected as invalid input; the file format (YAML or
// JSON) is selected the same way as Export.
func Import(path string) (Portable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Portable{}, kerrors.Wrap(kerrors.IO, "read portable document", err)
	}

	var p Portable
	if isJSONPath(path) {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return Portable{}, kerrors.Wrap(kerrors.InvalidInput, "parse portable document", err)
	}

	if p.Version != currentPortableVersion {
		return Portable{}, kerrors.New(kerrors.InvalidInput, fmt.Sprintf("unsupported portable document version %d", p.Version))
	}
	for i, repo := range p.Repositories {
		switch repo.Type {
		case RepoRemote:
			if repo.URL == "" {
				return Portable{}, kerrors.New(kerrors.InvalidInput, fmt.Sprintf("repositories[%d]: remote entry missing url", i))
			}
		case RepoLocal:
			if repo.Path == "" {
				return Portable{}, kerrors.New(kerrors.InvalidInput, fmt.Sprintf("repositories[%d]: local entry missing path", i))
			}
		default:
			return Portable{}, kerrors.New(kerrors.InvalidInput, fmt.Sprintf("repositories[%d]: unknown type %q", i, repo.Type))
		}
	}

	return p, nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

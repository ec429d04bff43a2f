// Package source classifies a caller-supplied repository identifier as a
// local path or a remote reference, normalizes remote references to a
// clone URL and an (owner, name) pair, and derives a deterministic
// on-disk clone path. The Indexer only ever sees the resulting local
// path; this package owns the remote-metadata side of a Repository.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

// Kind classifies a parsed repository reference.
type Kind string

const (
	KindLocal     Kind = "local"
	KindShorthand Kind = "shorthand"
	KindHTTPS     Kind = "https"
	KindSSH       Kind = "ssh"
)

// Reference is the parsed and normalized form of a caller-supplied
// repository identifier.
type Reference struct {
	Kind  Kind
	Owner string
	Name  string
	// NormalizedURL is the clone URL for remote references: HTTPS for
	// shorthand and SSH forms, and the given URL's own scheme for http(s)
	// URLs. Empty for local references.
	NormalizedURL string
	// LocalPath is the filesystem path for local references; empty for
	// remote references.
	LocalPath string
}

var (
	sshShorthandPattern = regexp.MustCompile(`^git@([^:]+):([^/]+)/(.+?)(\.git)?$`)
	ownerNamePattern    = regexp.MustCompile(`^([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+)$`)
)

const defaultHost = "github.com"

// Classify determines whether input names a local directory or a remote
// repository, and normalizes remote references.
func Classify(input string) (Reference, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Reference{}, kerrors.New(kerrors.InvalidInput, "empty repository reference")
	}

	switch {
	case strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "http://"):
		return classifyHTTPS(input)
	case strings.HasPrefix(input, "ssh://"):
		return classifySSHURL(input)
	case sshShorthandPattern.MatchString(input):
		return classifySSHShorthand(input)
	}

	if info, err := os.Stat(input); err == nil && info.IsDir() {
		return Reference{Kind: KindLocal, LocalPath: input}, nil
	}

	if m := ownerNamePattern.FindStringSubmatch(input); m != nil {
		owner, name := m[1], strings.TrimSuffix(m[2], ".git")
		return Reference{
			Kind:          KindShorthand,
			Owner:         owner,
			Name:          name,
			NormalizedURL: fmt.Sprintf("https://%s/%s/%s.git", defaultHost, owner, name),
		}, nil
	}

	// Fall through to local: a path that doesn't exist yet is still a
	// local reference, e.g. one the caller is about to create.
	return Reference{Kind: KindLocal, LocalPath: input}, nil
}

func classifyHTTPS(input string) (Reference, error) {
	trimmed := strings.TrimSuffix(input, ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return Reference{}, kerrors.New(kerrors.InvalidInput, "malformed https repository url")
	}
	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	return Reference{
		Kind:          KindHTTPS,
		Owner:         owner,
		Name:          name,
		NormalizedURL: trimmed + ".git",
	}, nil
}

func classifySSHURL(input string) (Reference, error) {
	trimmed := strings.TrimSuffix(input, ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return Reference{}, kerrors.New(kerrors.InvalidInput, "malformed ssh repository url")
	}
	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	host := strings.TrimPrefix(strings.Split(trimmed, "/")[2], "git@")
	return Reference{
		Kind:          KindSSH,
		Owner:         owner,
		Name:          name,
		NormalizedURL: fmt.Sprintf("https://%s/%s/%s.git", host, owner, name),
	}, nil
}

func classifySSHShorthand(input string) (Reference, error) {
	m := sshShorthandPattern.FindStringSubmatch(input)
	host, owner, name := m[1], m[2], strings.TrimSuffix(m[3], ".git")
	return Reference{
		Kind:          KindSSH,
		Owner:         owner,
		Name:          name,
		NormalizedURL: fmt.Sprintf("https://%s/%s/%s.git", host, owner, name),
	}, nil
}

// ClonePath derives the deterministic on-disk clone path for a remote
// reference, rooted at the core's per-user config directory.
func ClonePath(configDir, owner, name string) string {
	return filepath.Join(configDir, "repos", owner, name)
}

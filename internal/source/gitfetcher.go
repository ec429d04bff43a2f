package source

import (
	"context"
	"errors"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

// GitFetcher implements Fetcher with go-git, so the module is runnable
// standalone without shelling out to a git binary.
type GitFetcher struct{}

// NewGitFetcher builds a GitFetcher.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{}
}

// Clone performs a full clone of url into destPath. branch is optional;
// empty means the remote's default branch.
func (f *GitFetcher) Clone(ctx context.Context, url, branch, destPath string) error {
	if err := os.MkdirAll(destPath, 0o755); err != nil {
		return kerrors.Wrap(kerrors.IO, "create clone directory", err)
	}

	opts := &git.CloneOptions{URL: url}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	_, err := git.PlainCloneContext(ctx, destPath, false, opts)
	if err != nil {
		return kerrors.Wrap(kerrors.IO, "clone repository", err)
	}
	return nil
}

// Sync fetches and fast-forwards destPath's working tree, reporting
// whether new commits were received.
func (f *GitFetcher) Sync(ctx context.Context, destPath string) (bool, error) {
	repo, err := git.PlainOpen(destPath)
	if err != nil {
		return false, kerrors.Wrap(kerrors.IO, "open cloned repository", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, kerrors.Wrap(kerrors.IO, "open worktree", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return false, nil
	default:
		return false, kerrors.Wrap(kerrors.IO, "pull repository", err)
	}
}

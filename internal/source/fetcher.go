package source

import "context"

// Fetcher drives the actual clone/pull of a remote reference. The core
// treats it as an external collaborator: Source only derives paths and
// metadata, never touches the network itself.
type Fetcher interface {
	// Clone creates a fresh checkout of url at destPath.
	Clone(ctx context.Context, url, branch, destPath string) error
	// Sync re-fetches an existing checkout at destPath and reports
	// whether new content was received.
	Sync(ctx context.Context, destPath string) (updated bool, err error)
}

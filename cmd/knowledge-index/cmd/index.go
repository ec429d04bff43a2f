package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/internal/config"
	"github.com/urbanisierung/knowledge-index/internal/index"
	"github.com/urbanisierung/knowledge-index/internal/source"
)

func newIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index [path-or-repository]",
		Short: "Index a local directory or remote repository",
		Long: `Index scans a directory (or clones a remote repository first), chunks
Markdown and code into the local database, and builds the lexical and
optional semantic indices used by search.

A remote repository argument may be a full https:// URL, a git@ ssh
URL, or an owner/name shorthand (resolved against github.com).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			return runIndex(ctx, cmd, target, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "drop the repository's existing entries before reindexing")
	cmd.AddCommand(newIndexInfoCmd())
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, target string, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ref, err := source.Classify(target)
	if err != nil {
		return fmt.Errorf("classify %q: %w", target, err)
	}

	root := ref.LocalPath
	displayName := target
	if ref.Kind != source.KindLocal {
		configDir, err := config.UserConfigDir()
		if err != nil {
			return err
		}
		root = source.ClonePath(configDir, ref.Owner, ref.Name)
		fetcher := source.NewGitFetcher()
		if _, statErr := os.Stat(root); os.IsNotExist(statErr) {
			fmt.Fprintf(cmd.OutOrStdout(), "cloning %s...\n", ref.NormalizedURL)
			if err := fetcher.Clone(ctx, ref.NormalizedURL, "", root); err != nil {
				return fmt.Errorf("clone %s: %w", ref.NormalizedURL, err)
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "syncing %s...\n", ref.NormalizedURL)
			if _, err := fetcher.Sync(ctx, root); err != nil {
				return fmt.Errorf("sync %s: %w", ref.NormalizedURL, err)
			}
		}
		displayName = ref.Owner + "/" + ref.Name
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	idx := index.New(s, nil)
	if existing, err := s.GetRepositoryByPath(ctx, root); err == nil && existing != nil {
		if force {
			if err := s.RemoveRepository(ctx, existing.ID); err != nil {
				return fmt.Errorf("clear existing index: %w", err)
			}
		} else if resuming, err := idx.Resume(ctx, existing.ID); err == nil && resuming {
			fmt.Fprintln(cmd.OutOrStdout(), "resuming interrupted index...")
		}
	}

	tty := isTTY(cmd.OutOrStdout())
	opts := index.Options{
		DisplayName:          displayName,
		MaxFileSize:          int64(cfg.MaxFileSizeMB) << 20,
		IgnorePatterns:       cfg.IgnorePatterns,
		BatchSize:            cfg.BatchSize,
		EnableSemanticSearch: cfg.EnableSemanticSearch,
		IndexCodeBlocks:      cfg.IndexCodeBlocks,
		StripMarkdownSyntax:  cfg.StripMarkdownSyntax,
		OnProgress: func(p index.Progress) {
			if tty {
				fmt.Fprintf(cmd.OutOrStdout(), "\rscanned %d/%d", p.Scanned, p.Total)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "scanned %d/%d\n", p.Scanned, p.Total)
			}
		},
	}

	result, err := idx.Ingest(ctx, root, opts)
	if tty {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	if err != nil {
		return fmt.Errorf("index %s: %w", root, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added=%d updated=%d deleted=%d unchanged=%d skipped=%d (%s)\n",
		result.Added, result.Updated, result.Deleted, result.Unchanged, result.Skipped, result.Elapsed)
	return nil
}

func newIndexInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [path]",
		Short: "Show indexing status for a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			abs, err := source.Classify(target)
			if err != nil {
				return err
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			repo, err := s.GetRepositoryByPath(cmd.Context(), abs.LocalPath)
			if err != nil {
				return fmt.Errorf("%s is not indexed", target)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "name=%s path=%s status=%s files=%d last_indexed=%s\n",
				repo.Name, repo.Path, repo.Status, repo.FileCount, repo.LastIndexed.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}

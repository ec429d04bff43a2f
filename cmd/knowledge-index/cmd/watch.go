package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/internal/index"
	"github.com/urbanisierung/knowledge-index/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var pollEvery time.Duration

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a directory and reindex on change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			return runWatch(cmd, target, pollEvery)
		},
	}
	cmd.Flags().DurationVar(&pollEvery, "poll-every", time.Second, "how often to drain pending change batches")
	return cmd
}

func runWatch(cmd *cobra.Command, target string, pollEvery time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	w := watch.New(watch.Options{
		DebounceWindow: time.Duration(cfg.WatcherDebounceMS) * time.Millisecond,
		IgnorePatterns: cfg.IgnorePatterns,
	})
	defer w.Stop()

	maxFileSize := int64(cfg.MaxFileSizeMB) << 20
	if err := w.Watch(target, maxFileSize, cfg.IgnorePatterns); err != nil {
		return fmt.Errorf("watch %s: %w", target, err)
	}

	idx := index.New(s, nil)
	ingestOpts := index.Options{
		MaxFileSize:          maxFileSize,
		IgnorePatterns:       cfg.IgnorePatterns,
		BatchSize:            cfg.BatchSize,
		EnableSemanticSearch: cfg.EnableSemanticSearch,
		IndexCodeBlocks:      cfg.IndexCodeBlocks,
		StripMarkdownSyntax:  cfg.StripMarkdownSyntax,
	}

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", target)
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, batch := range w.PollChanges() {
				if len(batch.Changes) == 0 {
					continue
				}
				slog.Info("reindexing on change", slog.String("root", batch.Root), slog.Int("changes", len(batch.Changes)))
				result, err := idx.Ingest(ctx, batch.Root, ingestOpts)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "reindex %s: %v\n", batch.Root, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: added=%d updated=%d deleted=%d\n",
					batch.Root, result.Added, result.Updated, result.Deleted)
			}
		}
	}
}

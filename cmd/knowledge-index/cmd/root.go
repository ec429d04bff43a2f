// Package cmd provides the CLI commands for knowledge-index.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/pkg/version"
)

// NewRootCmd creates the root command for the knowledge-index CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "knowledge-index",
		Short: "Local-first indexing and search core for personal knowledge bases",
		Long: `knowledge-index ingests Markdown notes and code into a local SQLite
index, exposes lexical/semantic/hybrid search over it, and watches
repositories for changes.

It runs entirely locally with no network calls except to fetch
repositories you explicitly point it at.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetVersionTemplate("knowledge-index version {{.Version}}\n")

	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.knowledge-index/logs/")
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config.toml")
	root.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to the metadata database")

	root.PersistentPreRunE = startDebugLogging
	root.PersistentPostRunE = stopDebugLogging

	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newReposCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

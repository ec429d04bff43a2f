package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/internal/mcpcore"
	"github.com/urbanisierung/knowledge-index/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		limit    int
		repo     string
		fileType string
		mode     string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed repositories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			for _, a := range args[1:] {
				query += " " + a
			}

			s, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			core := mcpcore.New(s, search.New(s, nil))
			out, err := core.Search(cmd.Context(), query, limit, repo, fileType, mode)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd, out)
			}
			for _, r := range out.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6.3f [%s] %s\n    %s\n", r.Score, r.Mode, r.RelPath, r.Snippet)
			}
			if out.Truncated {
				fmt.Fprintln(cmd.OutOrStdout(), out.Hint)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results to return (1-50)")
	cmd.Flags().StringVar(&repo, "repo", "", "restrict to repositories whose name contains this text")
	cmd.Flags().StringVar(&fileType, "file-type", "", "restrict to one file category")
	cmd.Flags().StringVar(&mode, "mode", "lexical", "search mode: lexical, semantic, hybrid, fuzzy, or regex")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output results as JSON")
	return cmd
}

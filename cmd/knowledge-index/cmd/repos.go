package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/internal/mcpcore"
	"github.com/urbanisierung/knowledge-index/internal/search"
)

func newReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage indexed repositories",
	}
	cmd.AddCommand(newReposListCmd())
	cmd.AddCommand(newReposRemoveCmd())
	return cmd
}

func newReposListCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every indexed repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			core := mcpcore.New(s, search.New(s, nil))
			repos, err := core.ListRepos(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd, repos)
			}
			for _, r := range repos {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s files=%-5d %s  %s\n", r.Name, r.Status, r.FileCount, r.LastIndexed, r.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func newReposRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a repository and its indexed data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			repo, err := s.GetRepositoryByPath(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s is not indexed", args[0])
			}
			if err := s.RemoveRepository(cmd.Context(), repo.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

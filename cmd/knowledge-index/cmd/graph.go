package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/internal/graph"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Query the wiki-link knowledge graph",
	}
	cmd.AddCommand(newGraphOrphansCmd())
	cmd.AddCommand(newGraphPathCmd())
	return cmd
}

func newGraphOrphansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orphans <repository-path>",
		Short: "List notes with no incoming or outgoing wiki-links",
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

			kg, err := graph.Build(cmd.Context(), s)
			if err != nil {
				return err
			}
			orphans, err := kg.Orphans()
			if err != nil {
				return err
			}
			for _, n := range orphans {
				if n.RepoID != repo.ID {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), n.RelPath)
			}
			return nil
		},
	}
}

func newGraphPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <repository-path> <from-rel-path> <to-rel-path>",
		Short: "Find the shortest wiki-link path between two notes",
		Args:  cobra.ExactArgs(3),
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

			kg, err := graph.Build(cmd.Context(), s)
			if err != nil {
				return err
			}
			path, err := kg.ShortestPath(repo.ID, args[1], repo.ID, args[2])
			if err != nil {
				return err
			}
			for _, id := range path {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/internal/config"
	"github.com/urbanisierung/knowledge-index/internal/source"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and export/import configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigExportCmd())
	cmd.AddCommand(newConfigImportCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		},
	}
}

func newConfigExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export repositories and settings to a portable document",
		Long:  "The output format (YAML or JSON) is chosen by the file extension: .json selects JSON, anything else selects YAML.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			repos, err := s.ListRepositories(cmd.Context())
			if err != nil {
				return err
			}

			portableRepos := make([]config.PortableRepository, 0, len(repos))
			for _, r := range repos {
				entry := config.PortableRepository{Name: r.Name}
				if r.OriginURL != "" {
					entry.Type = config.RepoRemote
					entry.URL = r.OriginURL
					entry.Branch = r.Branch
				} else {
					entry.Type = config.RepoLocal
					entry.Path = r.Path
				}
				portableRepos = append(portableRepos, entry)
			}

			maxSize := cfg.MaxFileSizeMB
			semantic := cfg.EnableSemanticSearch
			p := config.NewPortable(portableRepos, config.PortableSettings{
				MaxFileSizeMB:        &maxSize,
				EnableSemanticSearch: &semantic,
				DefaultSearchMode:    string(cfg.DefaultSearchMode),
				IgnorePatterns:       cfg.IgnorePatterns,
			})

			if err := config.Export(p, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d repositories to %s\n", len(portableRepos), args[0])
			return nil
		},
	}
}

func newConfigImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Register repositories from a portable document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Import(args[0])
			if err != nil {
				return err
			}

			s, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			configDir, err := config.UserConfigDir()
			if err != nil {
				return err
			}

			for _, repo := range p.Repositories {
				switch repo.Type {
				case config.RepoLocal:
					if _, err := s.AddRepository(cmd.Context(), repo.Path, repo.Name); err != nil {
						return fmt.Errorf("register %s: %w", repo.Path, err)
					}
				case config.RepoRemote:
					ref, err := source.Classify(repo.URL)
					if err != nil {
						return fmt.Errorf("classify %s: %w", repo.URL, err)
					}
					clonePath := source.ClonePath(configDir, ref.Owner, ref.Name)
					if _, err := s.AddRemoteRepository(cmd.Context(), clonePath, repo.Name, repo.URL, repo.Branch); err != nil {
						return fmt.Errorf("register %s: %w", repo.URL, err)
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %d repositories from %s\n", len(p.Repositories), args[0])
			return nil
		},
	}
}

// Package config loads and validates the core's configuration file
// (config.toml) and implements the portable export/import format used
// to move a set of repositories and settings between machines.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

// SearchMode mirrors internal/search.Mode's lexical/semantic/hybrid
// values that are valid as a configured default.
type SearchMode string

const (
	ModeLexical  SearchMode = "lexical"
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
)

// Config is the full set of user-configurable knobs, one field per key
// in the on-disk layout's configuration table.
type Config struct {
	MaxFileSizeMB        int        `mapstructure:"max_file_size_mb"`
	IgnorePatterns       []string   `mapstructure:"ignore_patterns"`
	WatcherDebounceMS    int        `mapstructure:"watcher_debounce_ms"`
	BatchSize            int        `mapstructure:"batch_size"`
	EnableSemanticSearch bool       `mapstructure:"enable_semantic_search"`
	EmbeddingModel       string     `mapstructure:"embedding_model"`
	DefaultSearchMode    SearchMode `mapstructure:"default_search_mode"`
	StripMarkdownSyntax  bool       `mapstructure:"strip_markdown_syntax"`
	IndexCodeBlocks      bool       `mapstructure:"index_code_blocks"`
}

var knownKeys = map[string]bool{
	"max_file_size_mb":       true,
	"ignore_patterns":        true,
	"watcher_debounce_ms":    true,
	"batch_size":             true,
	"enable_semantic_search": true,
	"embedding_model":        true,
	"default_search_mode":    true,
	"strip_markdown_syntax":  true,
	"index_code_blocks":      true,
}

var defaultIgnorePatterns = []string{
	".git", ".obsidian", "node_modules", "target", "__pycache__", ".venv", "venv",
}

// Default returns the configuration that applies when config.toml is
// absent or omits a key.
func Default() *Config {
	return &Config{
		MaxFileSizeMB:        10,
		IgnorePatterns:       append([]string(nil), defaultIgnorePatterns...),
		WatcherDebounceMS:    500,
		BatchSize:            100,
		EnableSemanticSearch: false,
		EmbeddingModel:       "all-MiniLM-L6-v2",
		DefaultSearchMode:    ModeLexical,
		StripMarkdownSyntax:  false,
		IndexCodeBlocks:      true,
	}
}

// Load reads configPath (config.toml) with spf13/viper, applying
// Default()'s values for any key the file omits, and rejects unknown
// top-level keys per spec.md's "validated at load time" design note. A
// missing file is not an error: Default() is returned as-is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	d := Default()
	v.SetDefault("max_file_size_mb", d.MaxFileSizeMB)
	v.SetDefault("ignore_patterns", d.IgnorePatterns)
	v.SetDefault("watcher_debounce_ms", d.WatcherDebounceMS)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("enable_semantic_search", d.EnableSemanticSearch)
	v.SetDefault("embedding_model", d.EmbeddingModel)
	v.SetDefault("default_search_mode", string(d.DefaultSearchMode))
	v.SetDefault("strip_markdown_syntax", d.StripMarkdownSyntax)
	v.SetDefault("index_code_blocks", d.IndexCodeBlocks)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, kerrors.Wrap(kerrors.IO, "read config file", err)
		}
	} else {
		for _, key := range v.AllKeys() {
			if !knownKeys[key] {
				return nil, kerrors.New(kerrors.InvalidInput, fmt.Sprintf("unknown config key %q", key))
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, kerrors.Wrap(kerrors.InvalidInput, "parse config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a configuration with an out-of-range or unrecognized
// value; viper's unmarshal already handles wrong-type values by erroring
// earlier.
func (c *Config) Validate() error {
	if c.MaxFileSizeMB <= 0 {
		return kerrors.New(kerrors.InvalidInput, "max_file_size_mb must be positive")
	}
	if c.WatcherDebounceMS < 0 {
		return kerrors.New(kerrors.InvalidInput, "watcher_debounce_ms must be non-negative")
	}
	if c.BatchSize <= 0 {
		return kerrors.New(kerrors.InvalidInput, "batch_size must be positive")
	}
	switch c.DefaultSearchMode {
	case ModeLexical, ModeSemantic, ModeHybrid:
	default:
		return kerrors.New(kerrors.InvalidInput, fmt.Sprintf("default_search_mode must be lexical, semantic, or hybrid, got %q", c.DefaultSearchMode))
	}
	return nil
}

// UserConfigDir returns the per-user directory the on-disk layout roots
// everything under: $XDG_CONFIG_HOME/knowledge-index, falling back to
// ~/.config/knowledge-index.
func UserConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "knowledge-index"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", kerrors.Wrap(kerrors.IO, "resolve home directory", err)
	}
	return filepath.Join(home, ".config", "knowledge-index"), nil
}


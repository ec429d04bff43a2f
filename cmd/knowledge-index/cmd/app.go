package cmd

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/urbanisierung/knowledge-index/internal/config"
	"github.com/urbanisierung/knowledge-index/internal/logging"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

// isTTY reports whether w is a terminal, so progress output can use a
// single overwritten line on an interactive terminal and one line per
// update when redirected to a file or pipe.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printJSON writes v to cmd's output stream as indented JSON, shared by
// every subcommand's --json flag.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Persistent root flags, set by NewRootCmd and read by every subcommand.
var (
	debugMode  bool
	configPath string
	dbPath     string

	loggingCleanup func()
)

// defaultDBPath returns the core's metadata database path inside the
// per-user config directory, mirroring config.UserConfigDir.
func defaultDBPath() string {
	dir, err := config.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".knowledge-index.db")
	}
	return filepath.Join(dir, "index.db")
}

// defaultConfigPath returns config.toml's default location alongside
// the database.
func defaultConfigPath() string {
	dir, err := config.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// loadConfig reads the configured config.toml. A missing file yields
// config.Default(); any other load or validation error is returned.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openStore opens the metadata database at dbPath, creating its parent
// directory first.
func openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	return store.Open(dbPath)
}

// startDebugLogging wires --debug into internal/logging, matching the
// teacher's opt-in file-logging behaviour.
func startDebugLogging(*cobra.Command, []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	logger = logger.With(slog.String("run_id", uuid.NewString()))
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopDebugLogging(*cobra.Command, []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

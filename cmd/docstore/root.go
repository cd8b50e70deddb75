package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/docstore/internal/logging"
	"github.com/mycelicmemory/docstore/pkg/config"
	"github.com/mycelicmemory/docstore/pkg/docstore"
)

var (
	// Version is set during build.
	Version = "0.1.0"

	configPath string
	logLevel   string
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "docstore",
	Short: "Embedded, single-process document store",
	Long: `docstore unifies heterogeneous knowledge-graph entities under one
columnar schema with vector search, hierarchy traversal, and hybrid
multimodal ranking.

Examples:
  docstore put task "Write the quarterly report" --parent proj-123
  docstore get proj-123
  docstore children proj-123
  docstore relate proj-123 task-456
  docstore search "quarterly report" --limit 10
  docstore serve --port 8085
  docstore doctor`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log_level", "info", "log level (debug, info, warn, error)")
}

// loadStore loads configuration (honoring --config/--log_level) and
// opens the store at its configured path, the way the teacher's
// subcommands each opened their own *database.Database on demand.
func loadStore() (*docstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureStoreDir(); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	return docstore.Open(cfg)
}

// loadConfig loads configuration honoring --config/--log_level without
// opening the store, for subcommands that need the config alone.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/logging"
)

// storeFlags are shared by every command that touches the lead table.
type storeFlags struct {
	configPath  string
	dbPath      string
	databaseURL string
	dedupe      string
	verbose     bool
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "SQLite database file (default leads.db)")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	cmd.Flags().StringVar(&f.dedupe, "dedupe", "", "Duplicate handling on save: none or source")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")
}

func (f *storeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("db") {
		cfg.DatabasePath = f.dbPath
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if cmd.Flags().Changed("dedupe") {
		cfg.Dedupe = f.dedupe
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = f.verbose
	}
}

// loadConfig reads the optional config file, lets overrides apply explicitly set
// flags, fills defaults and the environment, and validates the result.
func loadConfig(path string, overrides func(*config.Config)) (*config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	if overrides != nil {
		overrides(&cfg)
	}

	merged := cfg.MergeWithDefaults(config.Defaults())
	merged.ApplyEnv()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	level := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	if cfg.Verbose {
		level = logging.LevelDebug
	}
	return logging.New(os.Stderr, level)
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

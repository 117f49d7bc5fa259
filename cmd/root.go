package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/codereview/internal/output"
	"github.com/joescharf/codereview/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "codereview",
	Short: "Tutor-style code review for programming assignments",
	Long: `codereview reviews a student's submission against its test results.
A staged pipeline finds logic errors, maps them to concepts, writes
Socratic hints, checks style and assembles a validated final report.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/codereview/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CODEREVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers a default for every config key.
func setDefaults() {
	dir, _ := configDirFunc()

	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "codereview.db"))
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("pipeline.batch_size", 5)
	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.timeout", "2m")
	viper.SetDefault("pipeline.max_lines", 60)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("port", 8080)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// The store opens lazily so config and version run without a db.
}

// newLogger returns the structured logger for pipeline diagnostics. It writes
// to stderr so stdout stays clean for --json and the MCP transport.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// Package main provides the rolo CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/matsen/rolo/internal/config"
	"github.com/matsen/rolo/internal/logging"
	"github.com/matsen/rolo/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// tableFlag overrides the workspace's default table
	tableFlag string
	// forceWrite allows writes to a partially loaded table
	forceWrite bool
	// verbose lowers the log level to debug
	verbose bool
)

// logger receives diagnostics on stderr (or the configured log file).
var logger = zerolog.Nop()

var logCloser io.Closer

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rolo",
	Short: "Contact manager with a configurable schema",
	Long: `rolo manages tables of records whose columns are defined at runtime.

Each table is a JSON schema file plus a CSV data file inside a .rolodex
workspace. Columns can be added, renamed, retyped, and deleted without
losing data, and the CSV stays readable by any spreadsheet.

All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVarP(&tableFlag, "table", "t", "", "Table to operate on (default from workspace config)")
	rootCmd.PersistentFlags().BoolVar(&forceWrite, "force", false, "Allow writes to a partially loaded table, dropping unreadable rows")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages to stderr")
	rootCmd.Version = Version
}

// setupLogging builds the logger from global config before any command runs.
func setupLogging(cmd *cobra.Command, args []string) error {
	config.LoadEnv()
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading global config: %v", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	l, closer, err := logging.New().FromPath(cfg.LogFile).Level(level).Make()
	if err != nil {
		exitWithError(ExitConfigError, "opening log: %v", err)
	}
	logger = l
	logCloser = closer
	return nil
}

// mustFindWorkspace finds the workspace root, exits on error.
func mustFindWorkspace() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.ResolveWorkspace(cwd)
	if err != nil {
		logger.Debug().Err(err).Msg("workspace lookup failed")
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return root
}

// mustLoadConfig loads workspace configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// tableName returns the table selected by --table or the workspace default.
func tableName(root string) string {
	if tableFlag != "" {
		return tableFlag
	}
	return mustLoadConfig(root).DefaultTable
}

// mustOpenTable opens the selected table, exits on error.
// A partially loaded table is returned read-only unless --force is given.
func mustOpenTable(root string) *store.Table {
	name := tableName(root)
	t, warnings, err := store.OpenRegistered(config.WorkspacePath(root), name)
	logWarnings(name, warnings)
	if t == nil {
		exitWithStoreError(err, "opening table %q", name)
	}
	if err != nil {
		if !t.Partial() {
			exitWithStoreError(err, "opening table %q", name)
		}
		logger.Warn().Err(err).Str("table", name).Int("records", t.Records.Len()).
			Msg("table loaded partially; writes are disabled (use --force or 'rolo restore')")
		if forceWrite {
			t.ForceWritable()
		}
	}
	logger.Debug().Str("table", name).Int("records", t.Records.Len()).Msg("table opened")
	return t
}

// logWarnings reports non-fatal load problems.
func logWarnings(table string, warnings []error) {
	for _, w := range warnings {
		logger.Warn().Str("table", table).Msg(w.Error())
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/matsen/rolo/internal/config"
	"github.com/matsen/rolo/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set workspace configuration values, and show the global settings.

Usage:
  rolo config                        # Show all config
  rolo config default-table          # Get specific value
  rolo config default-table clients  # Set value

Keys:
  default-table  Table used when --table is not given

Global settings (workspace_path, log_level, log_file) are read from
~/.config/rolo/config.yml and ROLO_* environment variables.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for config get commands.
type ConfigResponse struct {
	Workspace    string `json:"workspace"`
	DefaultTable string `json:"default_table"`
	GlobalConfig string `json:"global_config"`
	LogLevel     string `json:"log_level,omitempty"`
	LogFile      string `json:"log_file,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	// No args: show all config
	if len(args) == 0 {
		global, err := config.LoadGlobalConfig()
		if err != nil {
			exitWithError(ExitConfigError, "loading global config: %v", err)
		}
		resp := ConfigResponse{
			Workspace:    root,
			DefaultTable: cfg.DefaultTable,
			GlobalConfig: config.GlobalConfigPath(),
			LogLevel:     global.LogLevel,
			LogFile:      global.LogFile,
		}
		if humanOutput {
			fmt.Printf("workspace:      %s\n", resp.Workspace)
			fmt.Printf("default-table:  %s\n", resp.DefaultTable)
			fmt.Printf("global config:  %s\n", resp.GlobalConfig)
			fmt.Printf("log-level:      %s\n", resp.LogLevel)
			fmt.Printf("log-file:       %s\n", resp.LogFile)
		} else {
			outputJSON(resp)
		}
		return nil
	}

	key := args[0]
	normalizedKey := normalizeKey(key)
	if normalizedKey != "default-table" {
		exitWithError(ExitError, "unknown configuration key: %s", key)
	}

	// One arg: get specific value
	if len(args) == 1 {
		if humanOutput {
			fmt.Println(cfg.DefaultTable)
		} else {
			outputJSON(map[string]string{"default_table": cfg.DefaultTable})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	registry, err := store.LoadRegistry(config.WorkspacePath(root))
	if err != nil {
		exitWithStoreError(err, "loading tables")
	}
	if _, ok := registry.Tables[value]; !ok {
		exitWithError(ExitNotFound, "table %q not found", value)
	}
	cfg.DefaultTable = value

	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    normalizedKey,
			Value:  value,
		})
	}
	return nil
}

// normalizeKey converts key formats (default-table, default_table, DEFAULT_TABLE) to consistent format
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}

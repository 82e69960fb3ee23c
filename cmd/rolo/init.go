package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/matsen/rolo/internal/config"
	"github.com/matsen/rolo/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a workspace in the current directory",
	Long: `Create a .rolodex workspace in the current directory with one table
(named "contacts" unless --table is given) holding the default columns
ID, Name, Email, and Phone.

Running init in an existing workspace only creates the table if missing.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	name := tableFlag
	if name == "" {
		name = config.DefaultTableName
	}

	cfg := mustLoadConfig(cwd)
	if !config.IsWorkspace(cwd) {
		cfg.DefaultTable = name
	}
	if err := cfg.Save(cwd); err != nil {
		exitWithError(ExitError, "writing config: %v", err)
	}

	status := "created"
	if _, err := store.CreateTable(config.WorkspacePath(cwd), name); err != nil {
		if !errors.Is(err, store.ErrTableExists) {
			exitWithStoreError(err, "creating table %q", name)
		}
		status = "exists"
	}
	logger.Debug().Str("root", cwd).Str("table", name).Str("status", status).Msg("init")

	if humanOutput {
		if status == "exists" {
			fmt.Printf("Workspace already initialized with table %q at %s\n", name, config.WorkspacePath(cwd))
		} else {
			fmt.Printf("Initialized workspace with table %q at %s\n", name, config.WorkspacePath(cwd))
		}
		return nil
	}
	outputJSON(StatusResponse{Status: status, Table: name, Path: config.WorkspacePath(cwd)})
	return nil
}

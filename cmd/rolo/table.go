package main

import (
	"fmt"

	"github.com/matsen/rolo/internal/config"
	"github.com/matsen/rolo/internal/store"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage the tables of a workspace",
	Long: `Manage tables registered in .rolodex/tables.json.

Each table is a schema file (<name>.schema.json) and a CSV data file
(<name>.csv). Select a table for other commands with --table.`,
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered tables",
	Args:  cobra.NoArgs,
	RunE:  runTableList,
}

var tableCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new table with the default columns",
	Long: `Create a new table with the default columns ID, Name, Email, and Phone.

Example:
  rolo table create colleagues`,
	Args: cobra.ExactArgs(1),
	RunE: runTableCreate,
}

var tableDefault bool

func init() {
	rootCmd.AddCommand(tableCmd)
	tableCmd.AddCommand(tableListCmd)
	tableCmd.AddCommand(tableCreateCmd)
	tableCreateCmd.Flags().BoolVar(&tableDefault, "default", false, "Make the new table the workspace default")
}

func runTableList(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()

	tables, err := store.ListTables(config.WorkspacePath(root))
	if err != nil {
		exitWithStoreError(err, "listing tables")
	}

	if !humanOutput {
		outputJSON(tables)
		return nil
	}

	if len(tables) == 0 {
		fmt.Println("No tables registered")
		return nil
	}

	defaultTable := mustLoadConfig(root).DefaultTable
	nameWidth := len("NAME")
	for _, t := range tables {
		if len(t.Name)+2 > nameWidth {
			nameWidth = len(t.Name) + 2
		}
	}

	fmt.Printf("%s  %s  %s  %s\n",
		padRight("NAME", nameWidth),
		padLeft("RECORDS", 7),
		padLeft("SIZE", 9),
		"DATA")
	for _, t := range tables {
		name := t.Name
		if name == defaultTable {
			name += " *"
		}
		fmt.Printf("%s  %s  %s  %s\n",
			padRight(name, nameWidth),
			padLeft(fmt.Sprintf("%d", t.Records), 7),
			padLeft(formatBytes(t.DataSize), 9),
			t.DataPath)
		if t.Error != "" {
			fmt.Printf("  error: %s\n", t.Error)
		}
	}
	return nil
}

func runTableCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	root := mustFindWorkspace()

	t, err := store.CreateTable(config.WorkspacePath(root), name)
	if err != nil {
		exitWithStoreError(err, "creating table %q", name)
	}

	if tableDefault {
		cfg := mustLoadConfig(root)
		cfg.DefaultTable = name
		if err := cfg.Save(root); err != nil {
			exitWithError(ExitError, "writing config: %v", err)
		}
	}
	logger.Debug().Str("table", name).Msg("table created")

	if humanOutput {
		fmt.Printf("Created table %q\n", name)
		fmt.Printf("  Schema: %s\n", t.Schema.Path())
		fmt.Printf("  Data:   %s\n", t.Records.Path())
		return nil
	}
	outputJSON(t.Info())
	return nil
}

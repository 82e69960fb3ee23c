package main

import (
	"fmt"

	"github.com/matsen/rolo/internal/store"
	"github.com/spf13/cobra"
)

var columnType string

var columnCmd = &cobra.Command{
	Use:   "column",
	Short: "View and change the columns of a table",
	Long: `View and change the columns of a table.

Columns are addressed by their display name (case-insensitive). The ID
column cannot be renamed, retyped, or deleted. Every change rewrites the
data file so its header matches the schema.

Types are advisory: string, integer, float, boolean (others act as string).`,
}

var columnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the columns of a table",
	Args:  cobra.NoArgs,
	RunE:  runColumnList,
}

var columnAddCmd = &cobra.Command{
	Use:   "add <display>",
	Short: "Add a column; existing records get an empty value",
	Long: `Add a column. Its key is derived from the display name
(lowercase, non-alphanumerics become underscores).

Example:
  rolo column add "Home Address"
  rolo column add Age --type integer`,
	Args: cobra.ExactArgs(1),
	RunE: runColumnAdd,
}

var columnRenameCmd = &cobra.Command{
	Use:   "rename <display> <new-display>",
	Short: "Change a column's display name (its key is kept)",
	Args:  cobra.ExactArgs(2),
	RunE:  runColumnRename,
}

var columnRetypeCmd = &cobra.Command{
	Use:   "retype <display> <type>",
	Short: "Change a column's type",
	Args:  cobra.ExactArgs(2),
	RunE:  runColumnRetype,
}

var columnDeleteCmd = &cobra.Command{
	Use:   "delete <display>",
	Short: "Delete a column and its values from every record",
	Args:  cobra.ExactArgs(1),
	RunE:  runColumnDelete,
}

func init() {
	rootCmd.AddCommand(columnCmd)
	columnCmd.AddCommand(columnListCmd)
	columnCmd.AddCommand(columnAddCmd)
	columnCmd.AddCommand(columnRenameCmd)
	columnCmd.AddCommand(columnRetypeCmd)
	columnCmd.AddCommand(columnDeleteCmd)
	columnAddCmd.Flags().StringVar(&columnType, "type", string(store.FieldTypeString), "Column type (string, integer, float, boolean)")
}

func runColumnList(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)
	columns := t.Columns()

	if !humanOutput {
		outputJSON(columns)
		return nil
	}

	keyWidth, displayWidth := len("KEY"), len("DISPLAY")
	for _, c := range columns {
		keyWidth = max(keyWidth, len(c.Key))
		displayWidth = max(displayWidth, len(c.Display))
	}
	fmt.Printf("%s  %s  %s\n", padRight("DISPLAY", displayWidth), padRight("KEY", keyWidth), "TYPE")
	for _, c := range columns {
		fmt.Printf("%s  %s  %s\n", padRight(c.Display, displayWidth), padRight(c.Key, keyWidth), c.Type)
	}
	return nil
}

func runColumnAdd(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	col, err := t.AddColumn(args[0], store.FieldType(columnType))
	if err != nil {
		exitWithStoreError(err, "adding column %q", args[0])
	}
	logger.Debug().Str("table", t.Name).Str("key", col.Key).Msg("column added")

	if humanOutput {
		fmt.Printf("Added column %q (key %s, %s)\n", col.Display, col.Key, col.Type)
		return nil
	}
	outputJSON(ColumnResponse{Status: "added", Column: col})
	return nil
}

func runColumnRename(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	if err := t.RenameColumn(args[0], args[1]); err != nil {
		exitWithStoreError(err, "renaming column %q", args[0])
	}
	col := mustColumn(t, args[1])
	logger.Debug().Str("table", t.Name).Str("key", col.Key).Msg("column renamed")

	if humanOutput {
		fmt.Printf("Renamed column %q to %q\n", args[0], col.Display)
		return nil
	}
	outputJSON(ColumnResponse{Status: "renamed", Column: col})
	return nil
}

func runColumnRetype(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	if err := t.RetypeColumn(args[0], store.FieldType(args[1])); err != nil {
		exitWithStoreError(err, "retyping column %q", args[0])
	}
	col := mustColumn(t, args[0])
	logger.Debug().Str("table", t.Name).Str("key", col.Key).Str("type", string(col.Type)).Msg("column retyped")

	if humanOutput {
		fmt.Printf("Column %q is now %s\n", col.Display, col.Type)
		return nil
	}
	outputJSON(ColumnResponse{Status: "retyped", Column: col})
	return nil
}

func runColumnDelete(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	col, err := t.DeleteColumn(args[0])
	if err != nil {
		exitWithStoreError(err, "deleting column %q", args[0])
	}
	logger.Debug().Str("table", t.Name).Str("key", col.Key).Msg("column deleted")

	if humanOutput {
		fmt.Printf("Deleted column %q\n", col.Display)
		return nil
	}
	outputJSON(ColumnResponse{Status: "deleted", Column: col})
	return nil
}

// mustColumn looks up a column by display name, exits if it is missing.
func mustColumn(t *store.Table, display string) store.Column {
	columns := t.Columns()
	i, ok := columns.Find(display)
	if !ok {
		exitWithError(ExitNotFound, "column %q not found", display)
	}
	return columns[i]
}

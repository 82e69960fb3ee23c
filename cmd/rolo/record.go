package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listLimit int

var addCmd = &cobra.Command{
	Use:   "add <key=value>...",
	Short: "Add a record",
	Long: `Add a record. Fields are given as key=value pairs, where key is a
column key or display name. The ID is generated. The first column after ID
(Name by default) is required.

Example:
  rolo add name="Jane Doe" email=jane@example.com
  rolo add "Home Address=12 High St"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a record by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records in file order",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var updateCmd = &cobra.Command{
	Use:   "update <id> <key=value>...",
	Short: "Change fields of a record",
	Long: `Change fields of a record. Only the given fields change; an empty value
(key=) keeps the current value.

Example:
  rolo update 3 phone=555-0101`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum records to show (0 for all)")
}

// parseFields parses key=value arguments. Keys are trimmed; values are kept
// verbatim. A key may appear only once.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid field %q: expected key=value", arg)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid field %q: empty key", arg)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("field %q given more than once", key)
		}
		fields[key] = value
	}
	return fields, nil
}

func mustParseFields(args []string) map[string]string {
	fields, err := parseFields(args)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return fields
}

func runAdd(cmd *cobra.Command, args []string) error {
	fields := mustParseFields(args)
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	r, err := t.Create(fields)
	if err != nil {
		exitWithStoreError(err, "adding record")
	}
	logger.Debug().Str("table", t.Name).Str("id", r.ID()).Msg("record added")

	outputRecord("added", t.Columns(), r)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	r, ok := t.Records.Get(args[0])
	if !ok {
		exitWithError(ExitNotFound, "record %q not found", args[0])
	}
	outputRecord("", t.Columns(), r)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	records := t.Records.Records()
	if listLimit > 0 && len(records) > listLimit {
		records = records[:listLimit]
	}
	outputRecords(t.Columns(), records)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id := args[0]
	fields := mustParseFields(args[1:])
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	r, err := t.Update(id, fields)
	if err != nil {
		exitWithStoreError(err, "updating record %q", id)
	}
	logger.Debug().Str("table", t.Name).Str("id", id).Int("fields", len(fields)).Msg("record updated")

	outputRecord("updated", t.Columns(), r)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	deleted, err := t.Delete(id)
	if err != nil {
		exitWithStoreError(err, "deleting record %q", id)
	}
	if !deleted {
		exitWithError(ExitNotFound, "record %q not found", id)
	}
	logger.Debug().Str("table", t.Name).Str("id", id).Msg("record deleted")

	if humanOutput {
		fmt.Printf("Deleted record %s\n", id)
		return nil
	}
	outputJSON(StatusResponse{Status: "deleted", Table: t.Name})
	return nil
}

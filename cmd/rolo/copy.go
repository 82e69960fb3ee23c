package main

import (
	"errors"
	"fmt"

	"github.com/matsen/rolo/internal/clipboard"
	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy <id> <column>",
	Short: "Copy a field of a record to the clipboard",
	Long: `Copy one field of a record to the system clipboard. The column is given
by key or display name.

Example:
  rolo copy 3 email`,
	Args: cobra.ExactArgs(2),
	RunE: runCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)
}

// CopyResponse is the response for copy.
type CopyResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

func runCopy(cmd *cobra.Command, args []string) error {
	id, name := args[0], args[1]
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	r, ok := t.Records.Get(id)
	if !ok {
		exitWithError(ExitNotFound, "record %q not found", id)
	}
	col, ok := t.Columns().Resolve(name)
	if !ok {
		exitWithError(ExitNotFound, "column %q not found", name)
	}
	value := r.Get(col.Key)
	if value == "" {
		exitWithError(ExitDataError, "record %s has no %s", id, col.Display)
	}

	if err := clipboard.Copy(value); err != nil {
		if errors.Is(err, clipboard.ErrUnavailable) {
			exitWithError(ExitError, "no clipboard utility found (install pbcopy, wl-copy, xclip, or xsel)")
		}
		exitWithError(ExitError, "copying to clipboard: %v", err)
	}
	logger.Debug().Str("table", t.Name).Str("id", id).Str("column", col.Key).Msg("copied to clipboard")

	if humanOutput {
		fmt.Printf("Copied %s of record %s\n", col.Display, id)
		return nil
	}
	outputJSON(CopyResponse{Status: "copied", ID: id, Column: col.Key, Value: value})
	return nil
}

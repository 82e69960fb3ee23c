package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matsen/rolo/internal/export"
	"github.com/matsen/rolo/internal/store"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportSearch string
	exportIDs    string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatJSON), "Output format (json, jsonl, csv)")
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "Export only records matching a search term")
	exportCmd.Flags().StringVar(&exportIDs, "ids", "", "Export only specified IDs (comma-separated)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records to JSON, JSONL, or CSV",
	Long: `Export records of a table.

JSON and JSONL objects are keyed by column key with values converted to
their column types; empty values are null. CSV uses display names as the
header, like the data file.

Examples:
  rolo export
  rolo export --format csv -o contacts.csv
  rolo export --format jsonl --search smith
  rolo export --ids 1,4,7`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	root := mustFindWorkspace()
	t := mustOpenTable(root)

	var records []store.Record
	switch {
	case exportIDs != "":
		for _, id := range strings.Split(exportIDs, ",") {
			id = strings.TrimSpace(id)
			r, ok := t.Records.Get(id)
			if !ok {
				exitWithError(ExitNotFound, "record %q not found", id)
			}
			records = append(records, r)
		}
	case exportSearch != "":
		records = t.Records.Search(exportSearch)
	default:
		records = t.Records.Records()
	}

	write := func(w io.Writer) error {
		return export.Write(w, format, t.Columns(), records)
	}
	if exportOutput == "" {
		err = write(os.Stdout)
	} else {
		err = writeOutputFile(exportOutput, write)
	}
	if err != nil {
		exitWithError(ExitError, "exporting: %v", err)
	}
	logger.Debug().Str("table", t.Name).Str("format", string(format)).Int("records", len(records)).Msg("exported")
	return nil
}

// writeOutputFile creates path and fills it with write. The file is closed
// before returning, and removed if writing or closing failed.
func writeOutputFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	err = write(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", path, cerr)
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

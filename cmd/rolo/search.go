package main

import (
	"github.com/spf13/cobra"
)

var (
	filterMin float64
	filterMax float64
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find records containing a term",
	Long: `Find records where any column other than ID contains the term,
ignoring case. Results keep file order.

For ranked full-text search over the SQLite index, see 'rolo index search'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var filterCmd = &cobra.Command{
	Use:   "filter <column>",
	Short: "Find records with a numeric value in a range",
	Long: `Find records whose value in the column is a number within [--min, --max].
Either bound may be omitted. Non-numeric and empty values never match.

Example:
  rolo filter Age --min 30 --max 40`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(filterCmd)
	filterCmd.Flags().Float64Var(&filterMin, "min", 0, "Lower bound (inclusive)")
	filterCmd.Flags().Float64Var(&filterMax, "max", 0, "Upper bound (inclusive)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	results := t.Records.Search(args[0])
	logger.Debug().Str("table", t.Name).Str("term", args[0]).Int("matches", len(results)).Msg("search")
	outputRecords(t.Columns(), results)
	return nil
}

func runFilter(cmd *cobra.Command, args []string) error {
	var lo, hi *float64
	if cmd.Flags().Changed("min") {
		lo = &filterMin
	}
	if cmd.Flags().Changed("max") {
		hi = &filterMax
	}
	if lo == nil && hi == nil {
		exitWithError(ExitError, "at least one of --min or --max is required")
	}

	root := mustFindWorkspace()
	t := mustOpenTable(root)

	results, err := t.Records.Filter(args[0], lo, hi)
	if err != nil {
		exitWithStoreError(err, "filtering")
	}
	outputRecords(t.Columns(), results)
	return nil
}

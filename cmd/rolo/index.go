package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/matsen/rolo/internal/config"
	"github.com/matsen/rolo/internal/store"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "SQLite query index over a table",
	Long: `Maintain a SQLite mirror of a table in .rolodex/index.db for SQL queries
and ranked full-text search. The CSV stays the source of truth; the index
is rebuilt whenever the data file's hash changes.`,
}

var indexSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the index from the data file",
	Args:  cobra.NoArgs,
	RunE:  runIndexSync,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a SQL query against the index",
	Long: `Run a SQL query against the index. The table is synced first if stale.
Columns are named by key.

Examples:
  rolo index query "SELECT name, email FROM contacts WHERE email LIKE '%@example.com'"
  rolo index query "SELECT count(*) AS n FROM contacts"`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexQuery,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Ranked full-text search over text columns",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexSearch,
}

var indexWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync while the table's files change",
	Long: `Watch the table's schema and data files and resync the index after they
change, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runIndexWatch,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexSyncCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexWatchCmd)
	indexWatchCmd.Flags().DurationVar(&watchDebounce, "debounce", store.DefaultDebounce, "Quiet period before resyncing")
}

// SyncResponse is the response for index sync.
type SyncResponse struct {
	Table    string    `json:"table"`
	Records  int       `json:"records"`
	Index    string    `json:"index"`
	Synced   bool      `json:"synced"`
	LastSync time.Time `json:"last_sync"`
}

// mustOpenIndex opens the workspace index, exits on error.
// The caller is responsible for calling Close() on the returned index.
func mustOpenIndex(root string) *store.Index {
	ix, err := store.OpenIndex(config.IndexPath(root))
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	return ix
}

// ensureSynced rebuilds the index for t if its data file changed.
// Returns whether a sync happened.
func ensureSynced(ix *store.Index, t *store.Table) bool {
	needsSync, err := ix.NeedsSync(t)
	if err != nil {
		exitWithError(ExitError, "checking sync status: %v", err)
	}
	if !needsSync {
		return false
	}
	n, err := ix.Sync(t)
	if err != nil {
		exitWithError(ExitError, "syncing index: %v", err)
	}
	logger.Debug().Str("table", t.Name).Int("records", n).Msg("index synced")
	return true
}

func runIndexSync(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)
	ix := mustOpenIndex(root)
	defer ix.Close()

	n, err := ix.Sync(t)
	if err != nil {
		exitWithError(ExitError, "syncing index: %v", err)
	}
	last, _ := ix.LastSync(t.Name)

	if humanOutput {
		fmt.Printf("Synced %d records of %q to %s\n", n, t.Name, ix.Path())
		return nil
	}
	outputJSON(SyncResponse{Table: t.Name, Records: n, Index: ix.Path(), Synced: true, LastSync: last})
	return nil
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)
	ix := mustOpenIndex(root)
	defer ix.Close()

	ensureSynced(ix, t)

	rows, err := ix.Query(args[0])
	if err != nil {
		exitWithError(ExitError, "SQL error: %v", err)
	}

	if !humanOutput {
		if rows == nil {
			rows = []store.Row{}
		}
		outputJSON(rows)
		return nil
	}
	for _, row := range rows {
		fmt.Println(formatRow(row))
	}
	fmt.Printf("(%d rows)\n", len(rows))
	return nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)
	ix := mustOpenIndex(root)
	defer ix.Close()

	ensureSynced(ix, t)

	ids, err := ix.Search(t.Name, args[0])
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	var results []store.Record
	for _, id := range ids {
		if r, ok := t.Records.Get(id); ok {
			results = append(results, r)
		}
	}
	outputRecords(t.Columns(), results)
	return nil
}

func runIndexWatch(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)
	ix := mustOpenIndex(root)
	defer ix.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ensureSynced(ix, t)
	logger.Info().Str("table", t.Name).Dur("debounce", watchDebounce).Msg("watching for changes")
	if humanOutput {
		fmt.Printf("Watching %q (Ctrl-C to stop)\n", t.Name)
	}

	err := store.Watch(ctx, t, ix, watchDebounce, func(ev store.SyncEvent) {
		logWarnings(t.Name, ev.Warnings)
		if ev.Err != nil {
			logger.Error().Err(ev.Err).Str("table", t.Name).Msg("resync failed")
			return
		}
		logger.Info().Str("table", t.Name).Int("records", ev.Records).Msg("resynced")
		if humanOutput {
			fmt.Printf("%s  synced %d records\n", time.Now().Format(time.TimeOnly), ev.Records)
		} else {
			outputJSON(SyncResponse{Table: t.Name, Records: ev.Records, Index: ix.Path(), Synced: true, LastSync: time.Now().UTC()})
		}
	})
	if err != nil {
		exitWithError(ExitError, "watching: %v", err)
	}
	return nil
}

// formatRow formats a query result row as "col=value" pairs in column name order.
func formatRow(row store.Row) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, row[k])
	}
	return strings.Join(parts, "  ")
}

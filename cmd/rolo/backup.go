package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BackupResponse is the response for backup and restore.
type BackupResponse struct {
	Status     string `json:"status"`
	Table      string `json:"table"`
	SchemaPath string `json:"schema_path"`
	DataPath   string `json:"data_path"`
	Records    int    `json:"records"`
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the table's schema and data files to .bak siblings",
	Long: `Copy the table's schema and data files next to themselves with a .bak
suffix, replacing any earlier backup.`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the table's files with their .bak copies",
	Args:  cobra.NoArgs,
	RunE:  runRestore,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	if err := t.Backup(); err != nil {
		exitWithStoreError(err, "backing up table %q", t.Name)
	}
	schemaBak, dataBak := t.BackupPaths()
	logger.Info().Str("table", t.Name).Str("data", dataBak).Msg("backup written")

	if humanOutput {
		fmt.Printf("Backed up %d records of %q\n", t.Records.Len(), t.Name)
		fmt.Printf("  Schema: %s\n", schemaBak)
		fmt.Printf("  Data:   %s\n", dataBak)
		return nil
	}
	outputJSON(BackupResponse{
		Status:     "backed_up",
		Table:      t.Name,
		SchemaPath: schemaBak,
		DataPath:   dataBak,
		Records:    t.Records.Len(),
	})
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	t := mustOpenTable(root)

	warnings, err := t.Restore()
	logWarnings(t.Name, warnings)
	if err != nil {
		exitWithStoreError(err, "restoring table %q", t.Name)
	}
	logger.Info().Str("table", t.Name).Int("records", t.Records.Len()).Msg("restored from backup")

	if humanOutput {
		fmt.Printf("Restored %d records of %q from backup\n", t.Records.Len(), t.Name)
		return nil
	}
	outputJSON(BackupResponse{
		Status:     "restored",
		Table:      t.Name,
		SchemaPath: t.Schema.Path(),
		DataPath:   t.Records.Path(),
		Records:    t.Records.Len(),
	})
	return nil
}

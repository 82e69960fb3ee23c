package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/rolo/internal/export"
	"github.com/matsen/rolo/internal/store"
)

// MaxCellWidth caps column widths in human table output.
const MaxCellWidth = 40

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitWithStoreError exits with the code matching err, prefixed by context.
func exitWithStoreError(err error, format string, args ...interface{}) {
	exitWithError(exitCodeFor(err), "%s: %v", fmt.Sprintf(format, args...), err)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Table  string `json:"table,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ColumnResponse is the response for column mutations.
type ColumnResponse struct {
	Status string       `json:"status"`
	Column store.Column `json:"column"`
}

// RecordResponse wraps a single record in column order.
type RecordResponse struct {
	Status string          `json:"status,omitempty"`
	Record json.RawMessage `json:"record"`
}

// encodeRecords renders records as JSON objects in column order.
func encodeRecords(columns store.ColumnSet, records []store.Record) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		data, err := export.EncodeRecord(columns, r)
		if err != nil {
			exitWithError(ExitError, "encoding record %s: %v", r.ID(), err)
		}
		out = append(out, data)
	}
	return out
}

// outputRecords writes records as JSON or as a human table.
func outputRecords(columns store.ColumnSet, records []store.Record) {
	if humanOutput {
		outputTable(columns, records)
		return
	}
	outputJSON(encodeRecords(columns, records))
}

// outputRecord writes one record with an optional status.
func outputRecord(status string, columns store.ColumnSet, record store.Record) {
	if humanOutput {
		if status != "" {
			fmt.Printf("%s record %s\n", strings.ToUpper(status[:1])+status[1:], record.ID())
		}
		fmt.Print(formatRecordHuman(columns, record))
		return
	}
	data, err := export.EncodeRecord(columns, record)
	if err != nil {
		exitWithError(ExitError, "encoding record %s: %v", record.ID(), err)
	}
	outputJSON(RecordResponse{Status: status, Record: data})
}

// formatRecordHuman formats a record as aligned "Display: value" lines.
func formatRecordHuman(columns store.ColumnSet, record store.Record) string {
	width := 0
	for _, c := range columns {
		if len(c.Display) > width {
			width = len(c.Display)
		}
	}

	var sb strings.Builder
	for _, c := range columns {
		sb.WriteString("  ")
		sb.WriteString(padRight(c.Display+":", width+1))
		sb.WriteString(" ")
		sb.WriteString(record.Get(c.Key))
		sb.WriteString("\n")
	}
	return sb.String()
}

// outputTable writes records as a formatted table with display headers.
func outputTable(columns store.ColumnSet, records []store.Record) {
	if len(records) == 0 {
		fmt.Println("(0 rows)")
		return
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c.Display)
	}
	for _, r := range records {
		for i, c := range columns {
			if n := len(r.Get(c.Key)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		if widths[i] > MaxCellWidth {
			widths[i] = MaxCellWidth
		}
	}

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = padRight(strings.ToUpper(c.Display), widths[i])
	}
	fmt.Println(strings.TrimRight(strings.Join(header, "  "), " "))

	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = padRight(truncateString(r.Get(c.Key), widths[i]), widths[i])
		}
		fmt.Println(strings.TrimRight(strings.Join(row, "  "), " "))
	}

	fmt.Printf("(%d rows)\n", len(records))
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// padRight pads a string with spaces on the right.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft pads a string with spaces on the left.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

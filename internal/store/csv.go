package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// utf8BOM is stripped from the first header cell if a spreadsheet added one.
const utf8BOM = "\ufeff"

// ReadTable reads a CSV data file whose header row holds column display labels.
//
// The returned warnings describe rows that were skipped and headers with no
// matching column; such headers are kept under a fallback key. A malformed
// file returns an error wrapping ErrMalformedFile together with every record
// parsed before the failure. A missing or empty file yields no records.
func ReadTable(path string, columns ColumnSet) ([]Record, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: opening data file: %w", ErrIO, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading header of %s: %w", ErrMalformedFile, path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	keys, warnings := headerKeys(header, columns)

	var records []Record
	seen := make(map[string]bool)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				err = fmt.Errorf("line %d: %w", perr.Line, perr.Err)
			}
			return records, warnings, fmt.Errorf("%w: %s: %w", ErrMalformedFile, path, err)
		}
		line, _ := r.FieldPos(0)

		record := make(Record, len(columns))
		for i, cell := range row {
			if i >= len(keys) {
				warnings = append(warnings, fmt.Errorf("line %d: %d extra cells ignored", line, len(row)-len(keys)))
				break
			}
			if cell == "" {
				record[keys[i]] = Null
			} else {
				record[keys[i]] = Text(cell)
			}
		}

		id := strings.TrimSpace(record.ID())
		if id == "" {
			warnings = append(warnings, fmt.Errorf("line %d: record with missing or empty id skipped", line))
			continue
		}
		if seen[id] {
			warnings = append(warnings, fmt.Errorf("line %d: %w %q skipped", line, ErrDuplicateID, id))
			continue
		}
		seen[id] = true
		record[IDKey] = Text(id)

		for _, key := range columns.Keys() {
			if _, ok := record[key]; !ok {
				record[key] = Null
			}
		}
		records = append(records, record)
	}

	return records, warnings, nil
}

// headerKeys maps each header label to a column key. Labels with no column
// get a fallback key derived from the label that collides with nothing.
func headerKeys(header []string, columns ColumnSet) ([]string, []error) {
	var warnings []error
	keys := make([]string, len(header))
	used := make(map[string]bool)

	for i, label := range header {
		if j, ok := columns.Find(label); ok && !used[columns[j].Key] {
			keys[i] = columns[j].Key
			used[keys[i]] = true
			continue
		}

		base := NormalizeKey(label)
		if base == "" {
			base = "column_" + strconv.Itoa(i+1)
		}
		key := base
		for n := 2; used[key] || hasKey(columns, key); n++ {
			key = base + "_" + strconv.Itoa(n)
		}
		keys[i] = key
		used[key] = true
		warnings = append(warnings, fmt.Errorf("header %q has no column definition, kept as %q", label, key))
	}

	return keys, warnings
}

func hasKey(columns ColumnSet, key string) bool {
	_, ok := columns.FindKey(key)
	return ok
}

// WriteTable writes records to a CSV data file atomically, with a header of
// display labels and cells in column order. Null values are written empty.
func WriteTable(path string, columns ColumnSet, records []Record) error {
	err := writeFileAtomic(path, func(out io.Writer) error {
		w := csv.NewWriter(out)
		if err := w.Write(columns.Displays()); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}

		row := make([]string, len(columns))
		for i, record := range records {
			for j, c := range columns {
				row[j] = record[c.Key].String
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing record %d: %w", i+1, err)
			}
		}

		w.Flush()
		return w.Error()
	})
	if err != nil {
		return fmt.Errorf("writing data file: %w", err)
	}
	return nil
}

// Package export writes table records to interchange formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/rolo/internal/store"
)

// Format names an export format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatJSON, FormatJSONL, FormatCSV}

// ParseFormat resolves a format name, ignoring case.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, valid := range Formats {
		if f == valid {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (valid: json, jsonl, csv)", name)
}

// Write exports records in the given format.
func Write(w io.Writer, format Format, columns store.ColumnSet, records []store.Record) error {
	switch format {
	case FormatJSON:
		return ToJSON(w, columns, records)
	case FormatJSONL:
		return ToJSONL(w, columns, records)
	case FormatCSV:
		return ToCSV(w, columns, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// EncodeRecord encodes a record as a JSON object with keys in column order
// and values coerced to their column types.
func EncodeRecord(columns store.ColumnSet, record store.Record) (json.RawMessage, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')

		var value any
		if v := record[c.Key]; v.Valid {
			value = store.CoercerFor(c.Type).Coerce(v.String)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", c.Key, err)
		}
		b.Write(data)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ToJSON writes records as an indented JSON array of objects keyed by column key.
func ToJSON(w io.Writer, columns store.ColumnSet, records []store.Record) error {
	var b bytes.Buffer
	b.WriteString("[")
	for i, r := range records {
		data, err := EncodeRecord(columns, r)
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID(), err)
		}
		if i > 0 {
			b.WriteString(",")
		}
		b.Write(data)
	}
	b.WriteString("]")

	var out bytes.Buffer
	if err := json.Indent(&out, b.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

// ToJSONL writes one JSON object per line.
func ToJSONL(w io.Writer, columns store.ColumnSet, records []store.Record) error {
	for _, r := range records {
		data, err := EncodeRecord(columns, r)
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID(), err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// ToCSV writes records with a header of display labels, as in the data file.
func ToCSV(w io.Writer, columns store.ColumnSet, records []store.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns.Displays()); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, r := range records {
		for i, c := range columns {
			row[i] = r.Get(c.Key)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

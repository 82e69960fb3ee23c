// Package store provides a configurable-schema record store backed by a
// JSON schema file and a CSV data file, with an optional SQLite query index.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// FieldType is the conceptual type of a column. It is advisory only:
// every persisted value is text.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeFloat   FieldType = "float"
	FieldTypeBoolean FieldType = "boolean"
)

// IDKey is the key of the protected identifier column.
const IDKey = "id"

// Column defines a single column of a table.
type Column struct {
	Key     string    `json:"key"`
	Display string    `json:"display"`
	Type    FieldType `json:"type"`
}

// IsID reports whether c is the protected id column.
func (c Column) IsID() bool {
	return c.Key == IDKey
}

// ColumnSet is the ordered list of columns of a table. The id column is always first.
type ColumnSet []Column

// DefaultColumns returns the column set used when no schema has been persisted.
func DefaultColumns() ColumnSet {
	return ColumnSet{
		{Key: IDKey, Display: "ID", Type: FieldTypeString},
		{Key: "name", Display: "Name", Type: FieldTypeString},
		{Key: "email", Display: "Email", Type: FieldTypeString},
		{Key: "phone", Display: "Phone", Type: FieldTypeString},
	}
}

// Keys returns the column keys in order.
func (cs ColumnSet) Keys() []string {
	keys := make([]string, len(cs))
	for i, c := range cs {
		keys[i] = c.Key
	}
	return keys
}

// Displays returns the column display labels in order.
func (cs ColumnSet) Displays() []string {
	displays := make([]string, len(cs))
	for i, c := range cs {
		displays[i] = c.Display
	}
	return displays
}

// Find returns the index of the column whose display label matches, ignoring case.
func (cs ColumnSet) Find(display string) (int, bool) {
	display = strings.TrimSpace(display)
	for i, c := range cs {
		if strings.EqualFold(c.Display, display) {
			return i, true
		}
	}
	return -1, false
}

// FindKey returns the index of the column with the given key.
func (cs ColumnSet) FindKey(key string) (int, bool) {
	for i, c := range cs {
		if c.Key == key {
			return i, true
		}
	}
	return -1, false
}

// Resolve finds a column by key first and then by display label.
func (cs ColumnSet) Resolve(name string) (Column, bool) {
	if i, ok := cs.FindKey(name); ok {
		return cs[i], true
	}
	if i, ok := cs.Find(name); ok {
		return cs[i], true
	}
	return Column{}, false
}

// FirstDataColumn returns the first non-id column, if any.
func (cs ColumnSet) FirstDataColumn() (Column, bool) {
	for _, c := range cs {
		if !c.IsID() {
			return c, true
		}
	}
	return Column{}, false
}

// Clone returns a copy of the column set.
func (cs ColumnSet) Clone() ColumnSet {
	if cs == nil {
		return nil
	}
	out := make(ColumnSet, len(cs))
	copy(out, cs)
	return out
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeKey derives a column key from a display label: lowercase, with
// every run of characters outside [a-z0-9] collapsed to one underscore.
func NormalizeKey(display string) string {
	key := nonKeyChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(display)), "_")
	return strings.Trim(key, "_")
}

// schemaFile is the on-disk format of a schema file.
type schemaFile struct {
	Columns []Column `json:"columns"`
}

// SchemaStore owns the column set of one table and its schema file.
type SchemaStore struct {
	path    string
	columns ColumnSet
}

// NewSchemaStore creates a schema store for the given file. Call Load before use.
func NewSchemaStore(path string) *SchemaStore {
	return &SchemaStore{path: path, columns: DefaultColumns()}
}

// Path returns the schema file path.
func (s *SchemaStore) Path() string {
	return s.path
}

// Columns returns a copy of the current column set.
func (s *SchemaStore) Columns() ColumnSet {
	return s.columns.Clone()
}

// Load reads the schema file.
//
// A missing or empty file yields the default columns, which are persisted
// immediately. A malformed file is moved aside to <path>.malformed and
// replaced by the defaults. Repairs made to a readable file (synthesized id
// column, dropped duplicates) are returned as warnings; they are persisted
// on the next mutation or Save.
func (s *SchemaStore) Load() ([]error, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.columns = DefaultColumns()
		if os.IsNotExist(err) {
			return nil, s.Save()
		}
		return nil, fmt.Errorf("%w: reading schema: %w", ErrIO, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		s.columns = DefaultColumns()
		return nil, s.Save()
	}

	var file schemaFile
	if err := json.Unmarshal(data, &file); err != nil {
		return s.resetMalformed(fmt.Errorf("%w: parsing schema %s: %w", ErrMalformedFile, s.path, err))
	}
	if len(file.Columns) == 0 {
		return s.resetMalformed(fmt.Errorf("%w: schema %s has no columns", ErrMalformedFile, s.path))
	}

	columns, warnings := sanitizeColumns(file.Columns)
	if len(columns) == 0 {
		return s.resetMalformed(fmt.Errorf("%w: schema %s has no usable columns", ErrMalformedFile, s.path))
	}

	s.columns = columns
	return warnings, nil
}

// resetMalformed moves an unreadable schema aside and persists the defaults.
func (s *SchemaStore) resetMalformed(cause error) ([]error, error) {
	warnings := []error{cause}
	if err := os.Rename(s.path, s.path+".malformed"); err != nil {
		warnings = append(warnings, fmt.Errorf("%w: preserving malformed schema: %w", ErrIO, err))
	}
	s.columns = DefaultColumns()
	return warnings, s.Save()
}

// sanitizeColumns repairs a decoded column list so that keys and display
// labels are unique and the id column exists and comes first.
func sanitizeColumns(in []Column) (ColumnSet, []error) {
	var warnings []error
	out := make(ColumnSet, 0, len(in)+1)
	keys := make(map[string]bool)
	displays := make(map[string]bool)

	for i, c := range in {
		c.Key = strings.TrimSpace(c.Key)
		c.Display = strings.TrimSpace(c.Display)
		c.Type = FieldType(strings.ToLower(strings.TrimSpace(string(c.Type))))

		if c.Key == "" {
			c.Key = NormalizeKey(c.Display)
		}
		if c.Key == "" {
			warnings = append(warnings, fmt.Errorf("%w: column %d has no key or display name, dropped", ErrInvalidColumn, i+1))
			continue
		}
		if c.Display == "" {
			c.Display = c.Key
			if c.IsID() {
				c.Display = "ID"
			}
		}
		if c.Type == "" {
			c.Type = FieldTypeString
		}

		if keys[c.Key] {
			warnings = append(warnings, fmt.Errorf("%w: key %q repeated, dropped", ErrDuplicateColumn, c.Key))
			continue
		}
		if displays[strings.ToLower(c.Display)] {
			warnings = append(warnings, fmt.Errorf("%w: display %q repeated, dropped", ErrDuplicateDisplay, c.Display))
			continue
		}
		keys[c.Key] = true
		displays[strings.ToLower(c.Display)] = true
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, warnings
	}

	idx, ok := out.FindKey(IDKey)
	switch {
	case !ok:
		display := "ID"
		if displays["id"] {
			display = "Record ID"
		}
		id := Column{Key: IDKey, Display: display, Type: FieldTypeString}
		out = append(ColumnSet{id}, out...)
		warnings = append(warnings, fmt.Errorf("%w: added %q column", ErrMissingIDColumn, display))
	case idx > 0:
		id := out[idx]
		copy(out[1:idx+1], out[:idx])
		out[0] = id
	}

	return out, warnings
}

// Save writes the column set to the schema file atomically.
func (s *SchemaStore) Save() error {
	data, err := json.MarshalIndent(schemaFile{Columns: s.columns}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	data = append(data, '\n')

	err = writeFileAtomic(s.path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}
	return nil
}

// reset replaces the column set and saves it.
func (s *SchemaStore) reset(columns ColumnSet) error {
	s.columns = columns.Clone()
	return s.Save()
}

// commit persists a mutation, restoring prev if the write fails.
func (s *SchemaStore) commit(prev ColumnSet) error {
	if err := s.Save(); err != nil {
		s.columns = prev
		return err
	}
	return nil
}

// AddColumn appends a column whose key is derived from display.
func (s *SchemaStore) AddColumn(display string, ft FieldType) (Column, error) {
	display = strings.TrimSpace(display)
	if display == "" {
		return Column{}, fmt.Errorf("%w: display name is empty", ErrInvalidColumn)
	}

	key := NormalizeKey(display)
	if key == "" {
		return Column{}, fmt.Errorf("%w: %q has no letters or digits", ErrInvalidColumn, display)
	}
	if _, ok := s.columns.FindKey(key); ok {
		return Column{}, fmt.Errorf("%w: key %q", ErrDuplicateColumn, key)
	}
	if _, ok := s.columns.Find(display); ok {
		return Column{}, fmt.Errorf("%w: display %q", ErrDuplicateColumn, display)
	}

	ft = FieldType(strings.ToLower(strings.TrimSpace(string(ft))))
	if ft == "" {
		ft = FieldTypeString
	}

	col := Column{Key: key, Display: display, Type: ft}
	prev := s.columns.Clone()
	s.columns = append(s.columns, col)
	if err := s.commit(prev); err != nil {
		return Column{}, err
	}
	return col, nil
}

// mutable returns the index of a non-id column by display label.
func (s *SchemaStore) mutable(display string) (int, error) {
	i, ok := s.columns.Find(display)
	if !ok {
		return -1, fmt.Errorf("column %q: %w", display, ErrNotFound)
	}
	if s.columns[i].IsID() {
		return -1, ErrIsIDColumn
	}
	return i, nil
}

// RenameColumn changes a column's display label. Its key never changes.
func (s *SchemaStore) RenameColumn(oldDisplay, newDisplay string) error {
	i, err := s.mutable(oldDisplay)
	if err != nil {
		return err
	}

	newDisplay = strings.TrimSpace(newDisplay)
	if newDisplay == "" {
		return fmt.Errorf("%w: new display name is empty", ErrInvalidColumn)
	}
	if j, ok := s.columns.Find(newDisplay); ok && j != i {
		return fmt.Errorf("%w: %q", ErrDuplicateDisplay, newDisplay)
	}

	prev := s.columns.Clone()
	s.columns[i].Display = newDisplay
	return s.commit(prev)
}

// RetypeColumn changes a column's conceptual type. Existing values are not checked.
func (s *SchemaStore) RetypeColumn(display string, ft FieldType) error {
	i, err := s.mutable(display)
	if err != nil {
		return err
	}

	ft = FieldType(strings.ToLower(strings.TrimSpace(string(ft))))
	if ft == "" {
		ft = FieldTypeString
	}

	prev := s.columns.Clone()
	s.columns[i].Type = ft
	return s.commit(prev)
}

// DeleteColumn removes a column definition and returns it. Records keep the
// column's values until RecordStore.Reconcile runs.
func (s *SchemaStore) DeleteColumn(display string) (Column, error) {
	i, err := s.mutable(display)
	if err != nil {
		return Column{}, err
	}

	prev := s.columns.Clone()
	removed := s.columns[i]
	s.columns = append(s.columns[:i:i], s.columns[i+1:]...)
	if err := s.commit(prev); err != nil {
		return Column{}, err
	}
	return removed, nil
}

package store

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// BackupSuffix is appended to the schema and data paths of a table backup.
const BackupSuffix = ".bak"

// Table pairs a schema store with its record store and persists both after
// every mutation. Column changes reconcile the records and rewrite the data
// file immediately, so the header on disk always matches the schema.
type Table struct {
	Name    string
	Schema  *SchemaStore
	Records *RecordStore

	// partial is set when loading failed part way, e.g. a malformed data
	// file of which only the leading records were read. Writes are refused
	// while it is set.
	partial bool
}

// TableInfo contains summary information about a table.
type TableInfo struct {
	Name       string    `json:"name"`
	SchemaPath string    `json:"schema_path"`
	DataPath   string    `json:"data_path"`
	Records    int       `json:"records"`
	Columns    ColumnSet `json:"columns,omitempty"`
	DataSize   int64     `json:"data_size"`
	HasBackup  bool      `json:"has_backup"`
	Partial    bool      `json:"partial,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// OpenTable loads a table's schema and records.
//
// The table is returned even when err is non-nil: a malformed data file
// leaves the records parsed before the failure loaded and the table
// read-only (see ForceWritable). Warnings are never fatal.
func OpenTable(name, schemaPath, dataPath string) (*Table, []error, error) {
	schema := NewSchemaStore(schemaPath)
	t := &Table{
		Name:    name,
		Schema:  schema,
		Records: NewRecordStore(dataPath, schema),
	}

	warnings, err := t.Reload()
	return t, warnings, err
}

// Partial reports whether the table was only partially loaded.
func (t *Table) Partial() bool {
	return t.partial
}

// ForceWritable allows writes to a partially loaded table. The next save
// drops the unreadable part of the data file.
func (t *Table) ForceWritable() {
	t.partial = false
}

func (t *Table) writable() error {
	if t.partial {
		return fmt.Errorf("%w: table %q was only partially loaded; restore or repair %s first",
			ErrMalformedFile, t.Name, t.Records.Path())
	}
	return nil
}

// Columns returns the current column set.
func (t *Table) Columns() ColumnSet {
	return t.Schema.Columns()
}

// Save writes the schema and the records.
func (t *Table) Save() error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.Schema.Save(); err != nil {
		return err
	}
	return t.Records.Save()
}

// changeColumns applies a schema mutation, then reconciles the records and
// rewrites the data file. If the data file cannot be written, the schema
// and records are put back and the schema file is rewritten, so the files
// on disk keep agreeing with each other.
func (t *Table) changeColumns(mutate func() error) error {
	if err := t.writable(); err != nil {
		return err
	}

	prevColumns := t.Schema.Columns()
	prevRecords := t.Records.snapshot()
	if err := mutate(); err != nil {
		return err
	}

	t.Records.Reconcile()
	if err := t.Records.Save(); err != nil {
		t.Records.restore(prevRecords)
		if rerr := t.Schema.reset(prevColumns); rerr != nil {
			return fmt.Errorf("records not saved (%w) and schema not rolled back: %w", err, rerr)
		}
		return fmt.Errorf("column change undone, records not saved: %w", err)
	}
	return nil
}

// AddColumn adds a column and gives every record a null value for it.
func (t *Table) AddColumn(display string, ft FieldType) (Column, error) {
	var col Column
	err := t.changeColumns(func() error {
		var err error
		col, err = t.Schema.AddColumn(display, ft)
		return err
	})
	if err != nil {
		return Column{}, err
	}
	return col, nil
}

// RenameColumn changes a column's display label and rewrites the data file header.
func (t *Table) RenameColumn(oldDisplay, newDisplay string) error {
	return t.changeColumns(func() error {
		return t.Schema.RenameColumn(oldDisplay, newDisplay)
	})
}

// RetypeColumn changes a column's conceptual type.
func (t *Table) RetypeColumn(display string, ft FieldType) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.Schema.RetypeColumn(display, ft)
}

// DeleteColumn removes a column and its values from every record.
func (t *Table) DeleteColumn(display string) (Column, error) {
	var col Column
	err := t.changeColumns(func() error {
		var err error
		col, err = t.Schema.DeleteColumn(display)
		return err
	})
	if err != nil {
		return Column{}, err
	}
	return col, nil
}

// Create adds a new record and saves the data file.
func (t *Table) Create(fields map[string]string) (Record, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	r, err := t.Records.Create(fields)
	if err != nil {
		return nil, err
	}
	return r, t.Records.Save()
}

// Update changes fields of a record and saves the data file.
func (t *Table) Update(id string, partial map[string]string) (Record, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	r, err := t.Records.Update(id, partial)
	if err != nil {
		return nil, err
	}
	return r, t.Records.Save()
}

// Delete removes a record and saves the data file.
func (t *Table) Delete(id string) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	if !t.Records.Delete(id) {
		return false, nil
	}
	return true, t.Records.Save()
}

// BackupPaths returns the schema and data backup paths.
func (t *Table) BackupPaths() (string, string) {
	return t.Schema.Path() + BackupSuffix, t.Records.Path() + BackupSuffix
}

// Backup copies the schema and data files next to themselves with BackupSuffix.
// A partially loaded table is not backed up, so an earlier good backup
// survives until ForceWritable is called.
func (t *Table) Backup() error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := os.Stat(t.Records.Path()); os.IsNotExist(err) {
		if err := t.Records.Save(); err != nil {
			return err
		}
	}

	schemaBak, dataBak := t.BackupPaths()
	if err := copyFile(t.Schema.Path(), schemaBak); err != nil {
		return fmt.Errorf("backing up schema: %w", err)
	}
	if err := copyFile(t.Records.Path(), dataBak); err != nil {
		return fmt.Errorf("backing up data: %w", err)
	}
	return nil
}

// Restore replaces the schema and data files with their backups and reloads the table.
func (t *Table) Restore() ([]error, error) {
	schemaBak, dataBak := t.BackupPaths()
	for _, p := range []string{schemaBak, dataBak} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("backup %s: %w", p, ErrNotFound)
		}
	}

	prevSchema, err := os.ReadFile(t.Schema.Path())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading current schema: %w", ErrIO, err)
	}
	if err := copyFile(schemaBak, t.Schema.Path()); err != nil {
		return nil, fmt.Errorf("restoring schema: %w", err)
	}
	if err := copyFile(dataBak, t.Records.Path()); err != nil {
		if rerr := writeFileAtomic(t.Schema.Path(), func(w io.Writer) error {
			_, err := w.Write(prevSchema)
			return err
		}); rerr != nil {
			return nil, fmt.Errorf("restoring data (%w) left the backup schema in place: %w", err, rerr)
		}
		return nil, fmt.Errorf("restoring data: %w", err)
	}

	return t.Reload()
}

// Reload reads the schema and data files again, discarding in-memory state.
func (t *Table) Reload() ([]error, error) {
	t.partial = false
	warnings, err := t.Schema.Load()
	if err != nil {
		t.partial = true
		return warnings, fmt.Errorf("loading schema: %w", err)
	}
	recordWarnings, err := t.Records.Load()
	warnings = append(warnings, recordWarnings...)
	if err != nil {
		if errors.Is(err, ErrMalformedFile) {
			t.partial = true
		}
		return warnings, fmt.Errorf("loading records: %w", err)
	}
	return warnings, nil
}

// Info returns summary information about the table.
func (t *Table) Info() TableInfo {
	info := TableInfo{
		Name:       t.Name,
		SchemaPath: t.Schema.Path(),
		DataPath:   t.Records.Path(),
		Records:    t.Records.Len(),
		Columns:    t.Columns(),
		Partial:    t.partial,
	}
	if stat, err := os.Stat(t.Records.Path()); err == nil {
		info.DataSize = stat.Size()
	}
	_, dataBak := t.BackupPaths()
	if _, err := os.Stat(dataBak); err == nil {
		info.HasBackup = true
	}
	return info
}

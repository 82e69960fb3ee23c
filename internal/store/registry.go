package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// TableConfig defines where a table's files live, relative to the workspace directory.
type TableConfig struct {
	SchemaPath string `json:"schema"`
	DataPath   string `json:"data"`
}

// Registry is the format of tables.json.
type Registry struct {
	Tables map[string]*TableConfig `json:"tables"`
}

// RegistryFilename is the name of the registry file within the workspace directory.
const RegistryFilename = "tables.json"

// validTableName matches valid table names (alphanumeric + underscore, must start with letter or underscore).
var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidTableName reports whether name can be used as a table name. Names
// the index uses for its own tables (_meta, *_fts, sqlite_*) are refused,
// ignoring case as SQLite does.
func ValidTableName(name string) bool {
	if !validTableName.MatchString(name) {
		return false
	}
	lower := strings.ToLower(name)
	return lower != "_meta" &&
		!strings.HasSuffix(lower, "_fts") &&
		!strings.HasPrefix(lower, "sqlite_")
}

// LoadRegistry loads the table registry from a workspace directory.
// If the registry file doesn't exist, returns an empty registry.
func LoadRegistry(dir string) (*Registry, error) {
	path := filepath.Join(dir, RegistryFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Tables: make(map[string]*TableConfig)}, nil
		}
		return nil, fmt.Errorf("%w: reading registry: %w", ErrIO, err)
	}

	var registry Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("%w: parsing registry: %w", ErrMalformedFile, err)
	}

	if registry.Tables == nil {
		registry.Tables = make(map[string]*TableConfig)
	}

	return &registry, nil
}

// SaveRegistry saves the table registry to a workspace directory.
func SaveRegistry(dir string, registry *Registry) error {
	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	data = append(data, '\n')

	err = writeFileAtomic(filepath.Join(dir, RegistryFilename), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}

// paths resolves a table's file paths against the workspace directory.
func (c *TableConfig) paths(dir string) (string, string) {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	return resolve(c.SchemaPath), resolve(c.DataPath)
}

// CreateTable registers a new table with the default columns and an empty
// data file holding just the header row.
func CreateTable(dir, name string) (*Table, error) {
	if !ValidTableName(name) {
		return nil, fmt.Errorf("invalid table name %q: must be alphanumeric with underscores, starting with letter or underscore", name)
	}

	registry, err := LoadRegistry(dir)
	if err != nil {
		return nil, err
	}
	if _, exists := registry.Tables[name]; exists {
		return nil, fmt.Errorf("table %q: %w", name, ErrTableExists)
	}

	config := &TableConfig{
		SchemaPath: name + ".schema.json",
		DataPath:   name + ".csv",
	}
	schemaPath, dataPath := config.paths(dir)

	t, _, err := OpenTable(name, schemaPath, dataPath)
	if err != nil {
		return nil, err
	}
	if err := t.Save(); err != nil {
		return nil, err
	}

	registry.Tables[name] = config
	if err := SaveRegistry(dir, registry); err != nil {
		return nil, err
	}
	return t, nil
}

// OpenRegistered opens a registered table by name. See OpenTable for the
// meaning of the returned table when err is non-nil.
func OpenRegistered(dir, name string) (*Table, []error, error) {
	registry, err := LoadRegistry(dir)
	if err != nil {
		return nil, nil, err
	}

	config, ok := registry.Tables[name]
	if !ok {
		return nil, nil, fmt.Errorf("table %q: %w", name, ErrNotFound)
	}

	schemaPath, dataPath := config.paths(dir)
	return OpenTable(name, schemaPath, dataPath)
}

// ListTables returns information about all registered tables, sorted by name.
func ListTables(dir string) ([]TableInfo, error) {
	registry, err := LoadRegistry(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(registry.Tables))
	for name := range registry.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		config := registry.Tables[name]
		t, _, err := OpenRegistered(dir, name)
		if t == nil {
			schemaPath, dataPath := config.paths(dir)
			tables = append(tables, TableInfo{
				Name:       name,
				SchemaPath: schemaPath,
				DataPath:   dataPath,
				Error:      err.Error(),
			})
			continue
		}

		info := t.Info()
		if err != nil {
			// Table might be corrupted, include partial info
			info.Error = err.Error()
		}
		tables = append(tables, info)
	}

	return tables, nil
}

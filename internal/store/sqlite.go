package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a read-only SQLite mirror of a table, rebuilt from its data file.
// The CSV file stays the source of truth.
type Index struct {
	path string
	db   *sql.DB
}

// openStoreDB opens a SQLite database.
func openStoreDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	return db, nil
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := openStoreDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(GenerateMetaTableDDL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating meta table: %w", err)
	}
	return &Index{path: path, db: db}, nil
}

// Close closes the index database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Path returns the index database path.
func (ix *Index) Path() string {
	return ix.path
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// GenerateDDL generates a CREATE TABLE statement for a table's columns.
func GenerateDDL(name string, columns ColumnSet) string {
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		col := fmt.Sprintf("%s %s", quoteIdent(c.Key), sqliteType(c.Type))
		if c.IsID() {
			col += " PRIMARY KEY"
		}
		cols = append(cols, col)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		quoteIdent(name),
		strings.Join(cols, ",\n  "))
}

// ftsColumns returns the keys of the non-id string columns.
func ftsColumns(columns ColumnSet) []string {
	var keys []string
	for _, c := range columns {
		if !c.IsID() && sqliteType(c.Type) == "TEXT" {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// GenerateFTS5DDL generates a CREATE VIRTUAL TABLE statement for FTS5 over
// the text columns. Returns empty string if there are none.
func GenerateFTS5DDL(name string, columns ColumnSet) string {
	keys := ftsColumns(columns)
	if len(keys) == 0 {
		return ""
	}

	fields := []string{quoteIdent(IDKey) + " UNINDEXED"}
	for _, k := range keys {
		fields = append(fields, quoteIdent(k))
	}

	return fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(\n  %s\n)",
		quoteIdent(name+"_fts"),
		strings.Join(fields, ",\n  "))
}

// GenerateMetaTableDDL generates the _meta table DDL.
func GenerateMetaTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS _meta (
  key TEXT PRIMARY KEY,
  value TEXT
)`
}

// sqliteType maps FieldType to SQLite type.
func sqliteType(ft FieldType) string {
	switch ft {
	case FieldTypeInteger, FieldTypeBoolean:
		return "INTEGER"
	case FieldTypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ComputeFileHash computes a SHA256 hash of a file's contents.
// A missing file hashes like an empty one.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256([]byte{})
			return hex.EncodeToString(h[:]), nil
		}
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// NeedsSync reports whether the index is older than the table's data file.
func (ix *Index) NeedsSync(t *Table) (bool, error) {
	currentHash, err := ComputeFileHash(t.Records.Path())
	if err != nil {
		return true, err
	}

	storedHash, err := GetStoredHash(ix.db, t.Name)
	if err != nil {
		return true, err
	}

	return currentHash != storedHash, nil
}

// Sync rebuilds the index tables of t from its loaded records and returns
// the number of rows written.
func (ix *Index) Sync(t *Table) (int, error) {
	hash, err := ComputeFileHash(t.Records.Path())
	if err != nil {
		return 0, fmt.Errorf("computing hash: %w", err)
	}

	columns := t.Columns()
	records := t.Records.Records()

	tx, err := ix.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// Columns may have changed since the last sync, so the tables are recreated.
	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(t.Name)),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(t.Name+"_fts")),
		GenerateDDL(t.Name, columns),
	}
	if fts := GenerateFTS5DDL(t.Name, columns); fts != "" {
		stmts = append(stmts, fts)
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return 0, fmt.Errorf("rebuilding tables: %w", err)
		}
	}

	for i, record := range records {
		if err := insertRecord(tx, t.Name, columns, record); err != nil {
			return 0, fmt.Errorf("inserting record %d: %w", i+1, err)
		}
	}

	if err := SetStoredHash(tx, t.Name, hash); err != nil {
		return 0, fmt.Errorf("updating hash: %w", err)
	}
	if err := SetLastSyncTime(tx, t.Name, time.Now()); err != nil {
		return 0, fmt.Errorf("updating sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return len(records), nil
}

// insertRecord inserts a record into the main table and the FTS table.
func insertRecord(tx *sql.Tx, name string, columns ColumnSet, record Record) error {
	cols := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	values := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c.Key)
		placeholders[i] = "?"
		values[i] = convertValueForSQLite(record[c.Key], c.Type)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "))
	if _, err := tx.Exec(query, values...); err != nil {
		return err
	}

	keys := ftsColumns(columns)
	if len(keys) == 0 {
		return nil
	}

	ftsCols := []string{quoteIdent(IDKey)}
	ftsPlaceholders := []string{"?"}
	ftsValues := []any{record.ID()}
	for _, k := range keys {
		ftsCols = append(ftsCols, quoteIdent(k))
		ftsPlaceholders = append(ftsPlaceholders, "?")
		ftsValues = append(ftsValues, record[k].String)
	}

	query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name+"_fts"),
		strings.Join(ftsCols, ", "),
		strings.Join(ftsPlaceholders, ", "))
	_, err := tx.Exec(query, ftsValues...)
	return err
}

// convertValueForSQLite converts a cell to a value typed by its column.
func convertValueForSQLite(v Value, ft FieldType) any {
	if !v.Valid {
		return nil
	}

	switch x := CoercerFor(ft).Coerce(v.String).(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return x
	}
}

// Row is one result row of an index query, keyed by column name.
type Row map[string]any

// Query executes a SQL query against the index.
func (ix *Index) Query(query string) ([]Row, error) {
	rows, err := ix.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Search runs a full-text query over the text columns of a synced table and
// returns matching ids in rank order.
func (ix *Index) Search(name, query string) ([]string, error) {
	query = PrepareFTSQuery(query)
	if query == "" {
		return nil, nil
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s MATCH ? ORDER BY rank",
		quoteIdent(IDKey), quoteIdent(name+"_fts"), quoteIdent(name+"_fts"))
	rows, err := ix.db.Query(stmt, query)
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanRows converts SQL rows to result rows.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func hashKey(name string) string { return "hash:" + name }
func syncKey(name string) string { return "last_sync:" + name }

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setMeta(db execer, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO _meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

func getMeta(db *sql.DB, key string) (string, error) {
	var value sql.NullString
	err := db.QueryRow("SELECT value FROM _meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// GetStoredHash retrieves a table's data file hash from the _meta table.
func GetStoredHash(db *sql.DB, name string) (string, error) {
	return getMeta(db, hashKey(name))
}

// SetStoredHash stores a table's data file hash in the _meta table.
func SetStoredHash(db execer, name, hash string) error {
	return setMeta(db, hashKey(name), hash)
}

// GetLastSyncTime retrieves a table's last sync time from the _meta table.
func GetLastSyncTime(db *sql.DB, name string) (time.Time, error) {
	value, err := getMeta(db, syncKey(name))
	if err != nil || value == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastSyncTime stores a table's last sync time in the _meta table.
func SetLastSyncTime(db execer, name string, t time.Time) error {
	return setMeta(db, syncKey(name), t.UTC().Format(time.RFC3339))
}

// LastSync returns when table name was last synced, zero if never.
func (ix *Index) LastSync(name string) (time.Time, error) {
	return GetLastSyncTime(ix.db, name)
}

// PrepareFTSQuery escapes special characters for FTS5 queries.
func PrepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.@") {
		// Escape internal quotes and wrap in quotes
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

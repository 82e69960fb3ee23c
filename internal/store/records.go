package store

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordStore holds the records of one table in file order, with an index
// by id, and keeps them consistent with a SchemaStore.
type RecordStore struct {
	path    string
	schema  *SchemaStore
	records []Record
	byID    map[string]Record

	// orphans holds keys loaded from headers with no column. A column added
	// later under one of these keys starts out null.
	orphans map[string]bool
}

// NewRecordStore creates an empty record store for a data file. The schema
// store is consulted on every load, save, and reconcile.
func NewRecordStore(path string, schema *SchemaStore) *RecordStore {
	return &RecordStore{
		path:   path,
		schema: schema,
		byID:   make(map[string]Record),
	}
}

// Path returns the data file path.
func (rs *RecordStore) Path() string {
	return rs.path
}

// Load replaces the in-memory records with the content of the data file.
// On a malformed file the records parsed before the failure are kept and
// the error wraps ErrMalformedFile.
func (rs *RecordStore) Load() ([]error, error) {
	columns := rs.schema.Columns()
	records, warnings, err := ReadTable(rs.path, columns)
	rs.set(records)
	rs.orphans = orphanKeys(records, columns)
	return warnings, err
}

// orphanKeys returns the record keys that are not column keys.
func orphanKeys(records []Record, columns ColumnSet) map[string]bool {
	orphans := make(map[string]bool)
	for _, r := range records {
		for key := range r {
			if !hasKey(columns, key) {
				orphans[key] = true
			}
		}
	}
	return orphans
}

// recordsSnapshot is the in-memory state saved by snapshot.
type recordsSnapshot struct {
	records []Record
	orphans map[string]bool
}

func (rs *RecordStore) snapshot() recordsSnapshot {
	orphans := make(map[string]bool, len(rs.orphans))
	for k := range rs.orphans {
		orphans[k] = true
	}
	return recordsSnapshot{records: rs.Records(), orphans: orphans}
}

func (rs *RecordStore) restore(snap recordsSnapshot) {
	rs.set(snap.records)
	rs.orphans = snap.orphans
}

// set replaces the records and rebuilds the id index.
func (rs *RecordStore) set(records []Record) {
	rs.records = records
	rs.byID = make(map[string]Record, len(records))
	for _, r := range records {
		rs.byID[r.ID()] = r
	}
}

// Save writes all records to the data file. The in-memory records are
// untouched whether or not the write succeeds.
func (rs *RecordStore) Save() error {
	return WriteTable(rs.path, rs.schema.Columns(), rs.records)
}

// Len returns the number of records.
func (rs *RecordStore) Len() int {
	return len(rs.records)
}

// Records returns copies of all records in file order.
func (rs *RecordStore) Records() []Record {
	out := make([]Record, len(rs.records))
	for i, r := range rs.records {
		out[i] = r.Clone()
	}
	return out
}

// Get returns a copy of the record with the given id.
func (rs *RecordStore) Get(id string) (Record, bool) {
	r, ok := rs.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// NextID returns the id the next created record will receive.
func (rs *RecordStore) NextID() (string, error) {
	return GenerateID(rs.records)
}

// Create builds a record from raw field input, assigns it the next id, and
// adds it. Fields are addressed by column key or display label; values are
// normalized by their column's type and missing fields are null. The first
// non-id column must not be empty.
func (rs *RecordStore) Create(fields map[string]string) (Record, error) {
	columns := rs.schema.Columns()

	record := make(Record, len(columns))
	for _, c := range columns {
		record[c.Key] = Null
	}

	for name, raw := range fields {
		col, ok := columns.Resolve(name)
		if !ok {
			return nil, fmt.Errorf("field %q: %w", name, ErrNotFound)
		}
		if col.IsID() {
			return nil, fmt.Errorf("field %q: %w", name, ErrIsIDColumn)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		record[col.Key] = Text(CoercerFor(col.Type).Normalize(raw))
	}

	if first, ok := columns.FirstDataColumn(); ok && record[first.Key].IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrRequiredField, first.Display)
	}

	id, err := rs.NextID()
	if err != nil {
		return nil, err
	}
	record[IDKey] = Text(id)
	if err := rs.Add(record); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// Add inserts a prepared record. Fields outside the schema are dropped and
// missing ones are set to null.
func (rs *RecordStore) Add(record Record) error {
	id := strings.TrimSpace(record.ID())
	if id == "" {
		return fmt.Errorf("%w: id", ErrRequiredField)
	}
	if _, exists := rs.byID[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}

	r := project(record, rs.schema.Columns())
	r[IDKey] = Text(id)
	rs.records = append(rs.records, r)
	rs.byID[id] = r
	return nil
}

// Update overwrites the supplied fields of a record. Blank values keep the
// existing value. Fields are addressed by column key or display label.
func (rs *RecordStore) Update(id string, partial map[string]string) (Record, error) {
	record, ok := rs.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("record %q: %w", id, ErrNotFound)
	}

	columns := rs.schema.Columns()
	changes := make(map[string]string, len(partial))
	for name, raw := range partial {
		col, ok := columns.Resolve(name)
		if !ok {
			return nil, fmt.Errorf("field %q: %w", name, ErrNotFound)
		}
		if col.IsID() {
			return nil, fmt.Errorf("field %q: %w", name, ErrIsIDColumn)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		changes[col.Key] = CoercerFor(col.Type).Normalize(raw)
	}

	// Validate everything before touching the record.
	for key, text := range changes {
		record[key] = Text(text)
	}
	return record.Clone(), nil
}

// Delete removes the record with the given id and reports whether it existed.
func (rs *RecordStore) Delete(id string) bool {
	id = strings.TrimSpace(id)
	if _, ok := rs.byID[id]; !ok {
		return false
	}
	delete(rs.byID, id)
	for i, r := range rs.records {
		if r.ID() == id {
			rs.records = append(rs.records[:i], rs.records[i+1:]...)
			break
		}
	}
	return true
}

// Reconcile projects every record onto the schema's current column keys,
// adding nulls for new columns and dropping values of removed ones. Values
// kept from unmatched headers are dropped too, even when a new column took
// over their key. It must be called after every schema mutation.
func (rs *RecordStore) Reconcile() {
	columns := rs.schema.Columns()
	for _, r := range rs.records {
		for key := range r {
			if !hasKey(columns, key) {
				delete(r, key)
			}
		}
		for _, c := range columns {
			if _, ok := r[c.Key]; !ok || rs.orphans[c.Key] {
				r[c.Key] = Null
			}
		}
	}
	rs.orphans = nil
}

// project returns a copy of record holding exactly the keys of columns.
func project(record Record, columns ColumnSet) Record {
	out := make(Record, len(columns))
	for _, c := range columns {
		if v, ok := record[c.Key]; ok {
			out[c.Key] = v
		} else {
			out[c.Key] = Null
		}
	}
	return out
}

// Search returns the records with a non-id value containing term, ignoring case.
func (rs *RecordStore) Search(term string) []Record {
	return Search(rs.Records(), rs.schema.Columns(), term)
}

// Search filters records to those whose non-id column values contain term,
// ignoring case. Order is preserved. An empty term matches nothing.
func Search(records []Record, columns ColumnSet, term string) []Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var results []Record
	for _, r := range records {
		for _, c := range columns {
			if c.IsID() {
				continue
			}
			if strings.Contains(strings.ToLower(r[c.Key].String), term) {
				results = append(results, r)
				break
			}
		}
	}
	return results
}

// Filter returns the records whose value in the named column parses as a
// number within [min, max]. Nil bounds are open.
func (rs *RecordStore) Filter(name string, min, max *float64) ([]Record, error) {
	col, ok := rs.schema.Columns().Resolve(name)
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrNotFound)
	}

	var results []Record
	for _, r := range rs.Records() {
		v := r[col.Key]
		if v.IsEmpty() {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
		if err != nil {
			continue
		}
		if min != nil && n < *min {
			continue
		}
		if max != nil && n > *max {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

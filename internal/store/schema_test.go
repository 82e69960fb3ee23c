package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestSchema(t *testing.T) *SchemaStore {
	t.Helper()
	s := NewSchemaStore(filepath.Join(t.TempDir(), "contacts.schema.json"))
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		display string
		want    string
	}{
		{"Name", "name"},
		{"Home Address", "home_address"},
		{"E-mail  (work)", "e_mail_work"},
		{"  Phone #2 ", "phone_2"},
		{"__x__", "x"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			if got := NormalizeKey(tt.display); got != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.display, got, tt.want)
			}
		})
	}
}

func TestColumnSetLookup(t *testing.T) {
	cs := DefaultColumns()

	if i, ok := cs.Find("eMaIl"); !ok || cs[i].Key != "email" {
		t.Errorf("Find(eMaIl) = %d, %v", i, ok)
	}
	if _, ok := cs.Find("email_address"); ok {
		t.Error("Find should not match unknown display")
	}
	if c, ok := cs.Resolve("phone"); !ok || c.Display != "Phone" {
		t.Errorf("Resolve(phone) = %+v, %v", c, ok)
	}
	if c, ok := cs.Resolve("Name"); !ok || c.Key != "name" {
		t.Errorf("Resolve(Name) = %+v, %v", c, ok)
	}
	if c, ok := cs.FirstDataColumn(); !ok || c.Key != "name" {
		t.Errorf("FirstDataColumn() = %+v, %v", c, ok)
	}
}

func TestSchemaLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	s := NewSchemaStore(path)

	warnings, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if diff := cmp.Diff(DefaultColumns(), s.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults were not persisted: %v", err)
	}
}

func TestSchemaLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := os.WriteFile(path, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSchemaStore(path)
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(DefaultColumns(), s.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaLoad_MalformedMovedAside(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad json", `{"columns": [`},
		{"no columns", `{"columns": []}`},
		{"wrong shape", `["id", "name"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			s := NewSchemaStore(path)
			warnings, err := s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(warnings) == 0 || !errors.Is(warnings[0], ErrMalformedFile) {
				t.Errorf("warnings = %v, want ErrMalformedFile", warnings)
			}
			if diff := cmp.Diff(DefaultColumns(), s.Columns()); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}

			kept, err := os.ReadFile(path + ".malformed")
			if err != nil {
				t.Fatalf("malformed file not preserved: %v", err)
			}
			if string(kept) != tt.content {
				t.Errorf("preserved content = %q, want %q", kept, tt.content)
			}
		})
	}
}

func TestSchemaLoad_Repairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	content := `{"columns": [
		{"key": "name", "display": "Name", "type": "string"},
		{"key": "", "display": "Home Address"},
		{"key": "age", "display": "Age", "type": "INTEGER"},
		{"key": "name", "display": "Name Again"},
		{"key": "nick", "display": "AGE"},
		{"key": "", "display": ""}
	]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSchemaStore(path)
	warnings, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := ColumnSet{
		{Key: "id", Display: "ID", Type: FieldTypeString},
		{Key: "name", Display: "Name", Type: FieldTypeString},
		{Key: "home_address", Display: "Home Address", Type: FieldTypeString},
		{Key: "age", Display: "Age", Type: FieldTypeInteger},
	}
	if diff := cmp.Diff(want, s.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	var sawMissingID, sawDupKey, sawDupDisplay, sawInvalid bool
	for _, w := range warnings {
		sawMissingID = sawMissingID || errors.Is(w, ErrMissingIDColumn)
		sawDupKey = sawDupKey || errors.Is(w, ErrDuplicateColumn)
		sawDupDisplay = sawDupDisplay || errors.Is(w, ErrDuplicateDisplay)
		sawInvalid = sawInvalid || errors.Is(w, ErrInvalidColumn)
	}
	if !sawMissingID || !sawDupKey || !sawDupDisplay || !sawInvalid {
		t.Errorf("missing expected warnings: %v", warnings)
	}
}

func TestSchemaLoad_IDMovedFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	content := `{"columns": [
		{"key": "name", "display": "Name", "type": "string"},
		{"key": "email", "display": "Email", "type": "string"},
		{"key": "id", "display": "ID", "type": "string"}
	]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSchemaStore(path)
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := s.Columns().Keys(); !cmp.Equal(got, []string{"id", "name", "email"}) {
		t.Errorf("keys = %v, want id first", got)
	}
}

func TestSchemaRoundTrip(t *testing.T) {
	columns := ColumnSet{
		{Key: "id", Display: "ID", Type: FieldTypeString},
		{Key: "name", Display: "Full Name", Type: FieldTypeString},
		{Key: "age", Display: "Age", Type: FieldTypeInteger},
		{Key: "score", Display: "Score", Type: FieldTypeFloat},
		{Key: "vip", Display: "VIP", Type: FieldTypeBoolean},
		{Key: "born", Display: "Born", Type: "date"},
	}

	s := newTestSchema(t)
	s.columns = columns
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	first := NewSchemaStore(s.Path())
	if _, err := first.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := first.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second := NewSchemaStore(s.Path())
	if _, err := second.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff(columns, second.Columns()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAddColumn(t *testing.T) {
	s := newTestSchema(t)

	col, err := s.AddColumn("Home Address", "")
	if err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	want := Column{Key: "home_address", Display: "Home Address", Type: FieldTypeString}
	if col != want {
		t.Errorf("AddColumn() = %+v, want %+v", col, want)
	}
	if n := len(s.Columns()); n != 5 {
		t.Errorf("column count = %d, want 5", n)
	}

	reloaded := NewSchemaStore(s.Path())
	if _, err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.Columns().FindKey("home_address"); !ok {
		t.Error("added column was not persisted")
	}
}

func TestAddColumn_Errors(t *testing.T) {
	tests := []struct {
		name    string
		display string
		want    error
	}{
		{"empty", "  ", ErrInvalidColumn},
		{"no key characters", "???", ErrInvalidColumn},
		{"duplicate key", "E-mail", ErrDuplicateColumn},
		{"duplicate display ignoring case", "PHONE", ErrDuplicateColumn},
		{"id key", "Id", ErrDuplicateColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSchema(t)
			s.columns = append(s.columns, Column{Key: "e_mail", Display: "Work Mail", Type: FieldTypeString})

			before := s.Columns()
			_, err := s.AddColumn(tt.display, FieldTypeString)
			if !errors.Is(err, tt.want) {
				t.Fatalf("AddColumn(%q) error = %v, want %v", tt.display, err, tt.want)
			}
			if diff := cmp.Diff(before, s.Columns()); diff != "" {
				t.Errorf("schema changed on error (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenameColumn(t *testing.T) {
	s := newTestSchema(t)

	if err := s.RenameColumn("email", "E-mail Address"); err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	i, ok := s.Columns().Find("e-mail address")
	if !ok {
		t.Fatal("renamed column not found")
	}
	if key := s.Columns()[i].Key; key != "email" {
		t.Errorf("key = %q, want email (unchanged)", key)
	}

	// Changing only the case of a display is allowed.
	if err := s.RenameColumn("Name", "NAME"); err != nil {
		t.Errorf("case-only rename error = %v", err)
	}
}

func TestRenameColumn_Errors(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     error
	}{
		{"missing", "Nickname", "Nick", ErrNotFound},
		{"id", "ID", "Identifier", ErrIsIDColumn},
		{"taken", "Email", "phone", ErrDuplicateDisplay},
		{"empty", "Email", " ", ErrInvalidColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSchema(t)
			if err := s.RenameColumn(tt.old, tt.new); !errors.Is(err, tt.want) {
				t.Errorf("RenameColumn(%q, %q) error = %v, want %v", tt.old, tt.new, err, tt.want)
			}
			if diff := cmp.Diff(DefaultColumns(), s.Columns()); diff != "" {
				t.Errorf("schema changed on error (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRetypeColumn(t *testing.T) {
	s := newTestSchema(t)

	if err := s.RetypeColumn("Phone", "Integer"); err != nil {
		t.Fatalf("RetypeColumn() error = %v", err)
	}
	i, _ := s.Columns().FindKey("phone")
	if got := s.Columns()[i].Type; got != FieldTypeInteger {
		t.Errorf("type = %q, want integer", got)
	}

	if err := s.RetypeColumn("ID", FieldTypeInteger); !errors.Is(err, ErrIsIDColumn) {
		t.Errorf("retype id error = %v, want ErrIsIDColumn", err)
	}
	if err := s.RetypeColumn("Age", FieldTypeInteger); !errors.Is(err, ErrNotFound) {
		t.Errorf("retype missing error = %v, want ErrNotFound", err)
	}
}

func TestDeleteColumn(t *testing.T) {
	s := newTestSchema(t)

	col, err := s.DeleteColumn("email")
	if err != nil {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	if col.Key != "email" {
		t.Errorf("deleted %q, want email", col.Key)
	}
	if got := s.Columns().Keys(); !cmp.Equal(got, []string{"id", "name", "phone"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestDeleteColumn_IDAlwaysFails(t *testing.T) {
	for _, display := range []string{"ID", "id", " Id "} {
		s := newTestSchema(t)
		if _, err := s.DeleteColumn(display); !errors.Is(err, ErrIsIDColumn) {
			t.Errorf("DeleteColumn(%q) error = %v, want ErrIsIDColumn", display, err)
		}
		if diff := cmp.Diff(DefaultColumns(), s.Columns()); diff != "" {
			t.Errorf("schema changed (-want +got):\n%s", diff)
		}
	}
}

func TestSchemaMutation_RollbackOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	s := NewSchemaStore(filepath.Join(dir, "s.json"))
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}

	// A directory in place of the schema file makes the rename fail.
	if err := os.Remove(s.Path()); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(s.Path(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Path(), "keep"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := s.AddColumn("Address", FieldTypeString)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("AddColumn() error = %v, want ErrIO", err)
	}
	if diff := cmp.Diff(DefaultColumns(), s.Columns()); diff != "" {
		t.Errorf("in-memory schema not rolled back (-want +got):\n%s", diff)
	}

	if err := s.RenameColumn("Name", "Full Name"); !errors.Is(err, ErrIO) {
		t.Fatalf("RenameColumn() error = %v, want ErrIO", err)
	}
	if _, ok := s.Columns().Find("Name"); !ok {
		t.Error("rename not rolled back")
	}
}

func TestSchemaSave_Format(t *testing.T) {
	s := newTestSchema(t)
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "{\n  \"columns\": [") {
		t.Errorf("unexpected schema file format:\n%s", text)
	}
	if !strings.Contains(text, `"key": "id"`) || !strings.Contains(text, `"display": "ID"`) {
		t.Errorf("schema file missing id column:\n%s", text)
	}
}

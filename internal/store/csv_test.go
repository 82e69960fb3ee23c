package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTable_MissingAndEmpty(t *testing.T) {
	records, warnings, err := ReadTable(filepath.Join(t.TempDir(), "nope.csv"), DefaultColumns())
	if err != nil || records != nil || warnings != nil {
		t.Errorf("missing file: %v, %v, %v", records, warnings, err)
	}

	records, _, err = ReadTable(writeCSV(t, ""), DefaultColumns())
	if err != nil || len(records) != 0 {
		t.Errorf("empty file: %v, %v", records, err)
	}
}

func TestReadTable_HeaderMatching(t *testing.T) {
	// Header order differs from the schema and uses different case.
	path := writeCSV(t, "\ufeffid,EMAIL,name\n1,jane@x.com,Jane\n")

	records, warnings, err := ReadTable(path, DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	want := []Record{{"id": Text("1"), "name": Text("Jane"), "email": Text("jane@x.com"), "phone": Null}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTable_UnknownHeaderKept(t *testing.T) {
	path := writeCSV(t, "ID,Name,Nickname,Phone\n1,Jane,JD,555\n")

	records, warnings, err := ReadTable(path, DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Error(), "Nickname") {
		t.Errorf("warnings = %v, want one about Nickname", warnings)
	}
	if got := records[0].Get("nickname"); got != "JD" {
		t.Errorf("fallback value = %q, want JD", got)
	}
}

func TestHeaderKeys_FallbackCollisions(t *testing.T) {
	columns := DefaultColumns()
	keys, warnings := headerKeys([]string{"ID", "Name", "name", "E mail", "e-mail", "???"}, columns)

	want := []string{"id", "name", "name_2", "e_mail", "e_mail_2", "column_6"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if len(warnings) != 4 {
		t.Errorf("got %d warnings, want 4: %v", len(warnings), warnings)
	}
}

func TestReadTable_SkipsBadRows(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"ID,Name,Email,Phone",
		"1,Jane,,",
		",No Id,,",
		"  ,Blank Id,,",
		"1,Duplicate,,",
		"2,Short",
		"3,Long,a,b,extra",
	}, "\n")+"\n")

	records, warnings, err := ReadTable(path, DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	if !cmp.Equal(ids, []string{"1", "2", "3"}) {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}
	if records[0].Get("name") != "Jane" {
		t.Errorf("first of duplicate ids should win, got %v", records[0])
	}
	if v := records[1]["email"]; v.Valid {
		t.Errorf("short row email = %v, want null", v)
	}
	if v := records[0]["phone"]; v.Valid {
		t.Errorf("empty cell = %v, want null", v)
	}

	var dup int
	for _, w := range warnings {
		if errors.Is(w, ErrDuplicateID) {
			dup++
		}
	}
	if dup != 1 || len(warnings) != 4 {
		t.Errorf("warnings = %v, want 4 with one duplicate id", warnings)
	}
}

func TestReadTable_MalformedKeepsParsedRecords(t *testing.T) {
	path := writeCSV(t, "ID,Name,Email,Phone\n1,Jane,,\n2,\"Unclosed,,\n3,Bob,,\n")

	records, _, err := ReadTable(path, DefaultColumns())
	if !errors.Is(err, ErrMalformedFile) {
		t.Fatalf("error = %v, want ErrMalformedFile", err)
	}
	if len(records) != 1 || records[0].ID() != "1" {
		t.Errorf("records = %v, want the one before the failure", records)
	}
}

func TestWriteTable_RoundTrip(t *testing.T) {
	columns := DefaultColumns()
	records := []Record{
		{"id": Text("1"), "name": Text("Jane, Jr."), "email": Text(`say "hi"`), "phone": Null},
		{"id": Text("2"), "name": Text("Multi\nLine"), "email": Null, "phone": Text("555")},
		{"id": Text("3"), "name": Text("Empty"), "email": Text(""), "phone": Null},
	}
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := WriteTable(path, columns, records); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	got, warnings, err := ReadTable(path, columns)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	// Empty strings come back as null.
	records[2]["email"] = Null
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTable_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteTable(path, DefaultColumns(), nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ID,Name,Email,Phone\n" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteTable_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTable(filepath.Join(dir, "out.csv"), DefaultColumns(), nil); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory holds %v, want only out.csv", names)
	}
}

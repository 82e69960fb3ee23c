package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/book"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"WorkspacePath", WorkspacePath, "/test/book/.rolodex"},
		{"ConfigPath", ConfigPath, "/test/book/.rolodex/config.json"},
		{"IndexPath", IndexPath, "/test/book/.rolodex/index.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsWorkspace(t *testing.T) {
	tmpDir := t.TempDir()

	if IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = true for plain directory")
	}

	if err := os.Mkdir(filepath.Join(tmpDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .rolodex: %v", err)
	}

	if !IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = false for workspace directory")
	}
}

func TestIsWorkspace_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, WorkspaceDir), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create .rolodex file: %v", err)
	}

	if IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = true when .rolodex is a file")
	}
}

func TestFindWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	rootDir := filepath.Join(tmpDir, "book")
	nestedDir := filepath.Join(rootDir, "notes", "2024")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.Mkdir(filepath.Join(rootDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .rolodex: %v", err)
	}

	found, err := FindWorkspace(nestedDir)
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	if found != rootDir {
		t.Errorf("FindWorkspace() = %q, want %q", found, rootDir)
	}

	found, err = FindWorkspace(rootDir)
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	if found != rootDir {
		t.Errorf("FindWorkspace() = %q, want %q", found, rootDir)
	}
}

func TestFindWorkspace_NotFound(t *testing.T) {
	if _, err := FindWorkspace(t.TempDir()); err == nil {
		t.Error("FindWorkspace() should return error when no workspace found")
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{DefaultTable: "colleagues"}
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultTable != "colleagues" {
		t.Errorf("DefaultTable = %q, want colleagues", loaded.DefaultTable)
	}
}

func TestLoad_NotFoundUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultTable != DefaultTableName {
		t.Errorf("DefaultTable = %q, want %q", cfg.DefaultTable, DefaultTableName)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Mkdir(filepath.Join(tmpDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .rolodex: %v", err)
	}
	if err := os.WriteFile(ConfigPath(tmpDir), []byte("not json"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() should return error for invalid JSON")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~", home},
		{"~/contacts", filepath.Join(home, "contacts")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

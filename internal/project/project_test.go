package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/inkwell/internal/apperr"
)

func TestCreateLayout(t *testing.T) {
	dir := t.TempDir()
	l, err := Create(dir, "Novel")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Root != filepath.Join(dir, "Novel") {
		t.Errorf("root = %q", l.Root)
	}
	for _, p := range []string{"project.db", "md", "backups", filepath.Join("assets", "characters")} {
		if _, err := os.Stat(filepath.Join(l.Root, p)); err != nil {
			t.Errorf("%s missing: %v", p, err)
		}
	}
}

func TestCreateTwice(t *testing.T) {
	dir := t.TempDir()
	if _, err := Create(dir, "Novel"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := Create(dir, "Novel"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"Novel", true},
		{"my novel_2.draft-1", true},
		{"", false},
		{"..", false},
		{".hidden", false},
		{"a/b", false},
		{`a\b`, false},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if tt.valid && err != nil {
			t.Errorf("ValidateName(%q) = %v", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("ValidateName(%q) = %v, want ErrValidation", tt.name, err)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	created, err := Create(dir, "Novel")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// A removed subdirectory is restored on open.
	if err := os.RemoveAll(filepath.Join(created.Root, "backups")); err != nil {
		t.Fatal(err)
	}

	l, err := Open(created.Root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l.DBPath() != filepath.Join(created.Root, "project.db") {
		t.Errorf("db path = %q", l.DBPath())
	}
	if _, err := os.Stat(filepath.Join(l.Root, "backups")); err != nil {
		t.Errorf("backups not restored: %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(filepath.Join(dir, "nope")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing dir err = %v", err)
	}
	if _, err := Open(dir); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("dir without db err = %v", err)
	}
}

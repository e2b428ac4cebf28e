package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempProject(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempProject(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("md/note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("md/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestRemoveToleratesMissing(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("md/del.md", []byte("bye"))
	if err := s.Remove("md/del.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Read("md/del.md"); err == nil {
		t.Error("expected error reading removed file")
	}
	if err := s.Remove("md/del.md"); err != nil {
		t.Errorf("second Remove should succeed, got %v", err)
	}
	if err := s.Remove("md/never.md"); err != nil {
		t.Errorf("Remove of missing file should succeed, got %v", err)
	}
}

func TestRemoveAllToleratesMissing(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("assets/characters/c1/a.png", []byte("png"))
	_ = s.Write("assets/characters/c1/b.png", []byte("png"))
	if err := s.RemoveAll("assets/characters/c1"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "assets", "characters", "c1")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("asset dir still present: %v", err)
	}
	if err := s.RemoveAll("assets/characters/c1"); err != nil {
		t.Errorf("second RemoveAll should succeed, got %v", err)
	}
}

func TestRemoveAllRefusesRoot(t *testing.T) {
	s := tempProject(t)
	if err := s.RemoveAll(""); err == nil {
		t.Error("expected error removing project root")
	}
}

func TestList(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("md/a.md", []byte("a"))
	_ = s.Write("md/b.md", []byte("b"))
	_ = s.Write("md/readme.txt", []byte("not md"))

	items, err := s.List("md", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempProject(t)
	items, err := s.List("md", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestWalk(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("md/a.md", []byte("a"))
	_ = s.Write("md/sub/b.md", []byte("b"))
	_ = s.Write("other/c.md", []byte("c"))

	var got []string
	if err := s.Walk("md", func(rel string) error {
		got = append(got, filepath.ToSlash(rel))
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 2 || got[0] != "md/a.md" || got[1] != "md/sub/b.md" {
		t.Errorf("walk = %v", got)
	}

	got = nil
	if err := s.Walk("missing", func(rel string) error {
		got = append(got, rel)
		return nil
	}); err != nil {
		t.Fatalf("Walk missing: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("walk of missing dir = %v", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempProject(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.Remove(p); err == nil {
			t.Errorf("expected error for remove of %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "inkwell-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

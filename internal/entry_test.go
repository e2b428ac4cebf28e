package internal

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/inkwell/internal/testutil"
)

func workspaceConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Workspace.Root = t.TempDir()
	return cfg
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}

func TestRunBackup(t *testing.T) {
	cfg := workspaceConfig(t)
	reg := testutil.RegistryAt(t, cfg.Workspace.Root)
	st, err := reg.Create("novel")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateDocument(context.Background(), "Scene", nil); err != nil {
		t.Fatal(err)
	}
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := RunBackup(context.Background(), "novel", &out, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("RunBackup: %v", err)
	}
	path := strings.TrimSpace(out.String())
	if filepath.Dir(path) != filepath.Join(cfg.Workspace.Root, "novel", "backups") {
		t.Errorf("backup path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("backup not written: %v", err)
	}
}

func TestRunReconcile(t *testing.T) {
	cfg := workspaceConfig(t)
	reg := testutil.RegistryAt(t, cfg.Workspace.Root)
	st, err := reg.Create("novel")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := st.CreateDocument(context.Background(), "Scene", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}
	mdPath := filepath.Join(cfg.Workspace.Root, "novel", "md", doc.ID+".md")
	if err := os.Remove(mdPath); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := RunReconcile(context.Background(), "novel", &out, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("RunReconcile: %v", err)
	}
	if got := out.String(); got != "rewritten: 1, removed: 0\n" {
		t.Errorf("output = %q", got)
	}
	if _, err := os.Stat(mdPath); err != nil {
		t.Errorf("mirror file not restored: %v", err)
	}
}

func TestRunBackup_UnknownProject(t *testing.T) {
	cfg := workspaceConfig(t)
	var out bytes.Buffer
	if err := RunBackup(context.Background(), "missing", &out, WithConfig(cfg), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected error for unknown project")
	}
}

func TestBackupOpen(t *testing.T) {
	reg := testutil.TestRegistry(t)
	if _, err := reg.Create("novel"); err != nil {
		t.Fatal(err)
	}
	backupOpen(context.Background(), reg, testutil.Logger())

	entries, err := os.ReadDir(filepath.Join(reg.Root(), "novel", "backups"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("backups = %d, want 1", len(entries))
	}
}

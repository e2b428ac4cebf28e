package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/store"
	"github.com/starford/inkwell/internal/testutil"
)

func TestRegistryCreateAndGet(t *testing.T) {
	reg := testutil.TestRegistry(t)

	created, err := reg.Create("novel")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := reg.Get("novel")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != created {
		t.Error("Get returned a different store for the same project")
	}
	if created.Root() != filepath.Join(reg.Root(), "novel") {
		t.Errorf("root = %q", created.Root())
	}

	if _, err := reg.Create("novel"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate Create err = %v", err)
	}
	if _, err := reg.Get("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing err = %v", err)
	}
	if _, err := reg.Get("../etc"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Get traversal err = %v", err)
	}
}

func TestRegistryReopensFromDisk(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	reg, err := store.NewRegistry(root, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	s, err := reg.Create("novel")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	doc, _ := s.CreateDocument(ctx, "Scene", nil)
	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reg = testutil.RegistryAt(t, root)
	s, err = reg.Get("novel")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if md, err := s.LoadDocument(ctx, doc.ID); err != nil || md != store.DefaultBody {
		t.Errorf("LoadDocument = %q, %v", md, err)
	}
}

func TestRegistryList(t *testing.T) {
	reg := testutil.TestRegistry(t)
	for _, name := range []string{"zeta", "alpha"} {
		if _, err := reg.Create(name); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	// Directories without a catalog are not projects.
	if err := os.Mkdir(filepath.Join(reg.Root(), "stray"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "zeta"}, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if open := reg.Open(); len(open) != 2 || open[0].Name() != "alpha" {
		t.Errorf("open stores = %d", len(open))
	}
}

func TestRegistryWatchRepairsExternalEdit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	root := t.TempDir()
	reg, err := store.NewRegistry(root, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		cancel()
		reg.Close()
	}()

	s, err := reg.Create("novel")
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := s.CreateDocument(ctx, "Scene", nil)
	reg.EnableWatch(ctx, 20*time.Millisecond)
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(s.Root(), "md", doc.ID+".md")
	if err := os.WriteFile(path, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && string(data) == store.DefaultBody {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("mirror file was not repaired")
}

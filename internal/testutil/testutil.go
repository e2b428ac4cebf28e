// Package testutil provides shared test helpers for setting up workspaces and
// project stores.
package testutil

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/starford/inkwell/internal/store"
)

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SeqIDs returns a goroutine-safe id generator yielding prefix1, prefix2, ...
func SeqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// TestRegistry creates a registry over a temporary workspace that is closed
// when the test ends.
func TestRegistry(t *testing.T, opts ...store.Option) *store.Registry {
	t.Helper()
	return RegistryAt(t, t.TempDir(), opts...)
}

// RegistryAt opens a registry over an existing workspace root. Closing it
// early is fine; the cleanup close is a no-op then.
func RegistryAt(t *testing.T, root string, opts ...store.Option) *store.Registry {
	t.Helper()
	reg, err := store.NewRegistry(root, Logger(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

// TestStore creates a fresh project named "novel" and returns its store.
func TestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := TestRegistry(t, opts...).Create("novel")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/starford/inkwell/internal/project"
)

// Registry hands out one Store per project under a workspace directory, so
// that each project has exactly one lock in the process.
type Registry struct {
	root   string
	logger *slog.Logger
	opts   []Option

	mu     sync.Mutex
	stores map[string]*Store

	watchCtx      context.Context
	watchDebounce time.Duration
	watchers      sync.WaitGroup
}

// NewRegistry creates a registry for projects under root. opts apply to
// every store it opens.
func NewRegistry(root string, logger *slog.Logger, opts ...Option) (*Registry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve workspace: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create workspace: %w", err)
	}
	return &Registry{
		root:   abs,
		logger: logger,
		opts:   opts,
		stores: make(map[string]*Store),
	}, nil
}

// Root returns the absolute workspace directory.
func (r *Registry) Root() string { return r.root }

// EnableWatch starts a mirror watcher for every store opened from now on
// (and for those already open). Watchers stop when ctx is cancelled.
func (r *Registry) EnableWatch(ctx context.Context, debounce time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchCtx = ctx
	r.watchDebounce = debounce
	for _, s := range r.stores {
		r.startWatch(s)
	}
}

// startWatch must be called with r.mu held.
func (r *Registry) startWatch(s *Store) {
	if r.watchCtx == nil {
		return
	}
	ctx, debounce := r.watchCtx, r.watchDebounce
	r.watchers.Add(1)
	go func() {
		defer r.watchers.Done()
		if err := s.Watch(ctx, debounce); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("mirror watcher stopped",
				slog.String("project", s.Name()),
				slog.String("error", err.Error()))
		}
	}()
}

// Create bootstraps a new project and returns its store.
func (r *Registry) Create(name string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	layout, err := project.Create(r.root, name)
	if err != nil {
		return nil, err
	}
	r.logger.Info("project created", slog.String("project", name), slog.String("path", layout.Root))
	return r.openLocked(name, layout)
}

// Get returns the store of an existing project, opening it on first use.
func (r *Registry) Get(name string) (*Store, error) {
	if err := project.ValidateName(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[name]; ok {
		return s, nil
	}
	layout, err := project.Open(filepath.Join(r.root, name))
	if err != nil {
		return nil, err
	}
	return r.openLocked(name, layout)
}

func (r *Registry) openLocked(name string, layout *project.Layout) (*Store, error) {
	s, err := Open(layout, r.logger, r.opts...)
	if err != nil {
		return nil, err
	}
	r.stores[name] = s
	r.startWatch(s)
	return s, nil
}

// List returns the names of all projects in the workspace, sorted.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("store: list workspace: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || project.ValidateName(e.Name()) != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.root, e.Name(), project.DBFile)); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open returns the stores opened so far.
func (r *Registry) Open() []*Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Close waits for watchers to exit and closes every open store. Watchers
// exit once the context given to EnableWatch is cancelled.
func (r *Registry) Close() error {
	r.watchers.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: close %s: %w", name, err))
		}
		delete(r.stores, name)
	}
	return errors.Join(errs...)
}

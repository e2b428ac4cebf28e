// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/inkwell/internal/api"
	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/mcpserver"
	"github.com/starford/inkwell/internal/sse"
	"github.com/starford/inkwell/internal/store"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger(fallback io.Writer) *slog.Logger {
	w := a.logOutput
	if w == nil {
		w = fallback
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger(os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace", cfg.Workspace.Root),
		slog.Bool("mirror_watch", cfg.Mirror.Watch),
		slog.Duration("backup_interval", cfg.Backup.Interval),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.String("auth_mode", cfg.Auth.Mode),
	)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	reg, err := store.NewRegistry(cfg.Workspace.Root, logger, store.WithNotifier(func(ev store.Event) {
		broker.PublishChange(sse.Change{Project: ev.Project, Kind: ev.Kind, ID: ev.ID})
	}))
	if err != nil {
		return fmt.Errorf("init workspace: %w", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Error("close projects", slog.String("error", err.Error()))
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)

	// Watchers must be stopped before the registry is closed.
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()
	if cfg.Mirror.Watch {
		reg.EnableWatch(watchCtx, cfg.Mirror.Debounce)
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(reg.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"workspace unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; the SSE endpoint lives at /api/events.
	r.Mount("/api", api.NewRouter(reg, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Scheduled backups of every project opened since start.
	if cfg.Backup.Interval > 0 {
		g.Go(func() error {
			scheduleBackups(gCtx, reg, cfg.Backup.Interval, logger)
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stopWatch()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// scheduleBackups archives every open project each interval until ctx ends.
func scheduleBackups(ctx context.Context, reg *store.Registry, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			backupOpen(ctx, reg, logger)
		}
	}
}

func backupOpen(ctx context.Context, reg *store.Registry, logger *slog.Logger) {
	for _, st := range reg.Open() {
		if _, err := st.Backup(ctx); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
			logger.Error("scheduled backup failed",
				slog.String("project", st.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(ctx context.Context, version string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger(os.Stderr)

	reg, err := store.NewRegistry(cfg.Workspace.Root, logger)
	if err != nil {
		return fmt.Errorf("init workspace: %w", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Error("close projects", slog.String("error", err.Error()))
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Mirror.Watch {
		reg.EnableWatch(watchCtx, cfg.Mirror.Debounce)
	}

	logger.Info("MCP server starting", slog.String("workspace", cfg.Workspace.Root))
	err = mcpserver.New(reg, version).ServeStdio()
	stopWatch()
	return err
}

// RunBackup writes one backup of the named project and prints its path to out.
func RunBackup(ctx context.Context, project string, out io.Writer, opts ...Option) error {
	return withProject(opts, project, func(st *store.Store) error {
		info, err := st.Backup(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, info.Path)
		return err
	})
}

// RunReconcile repairs the named project's md/ files from its catalog.
func RunReconcile(ctx context.Context, project string, out io.Writer, opts ...Option) error {
	return withProject(opts, project, func(st *store.Store) error {
		rep, err := st.Reconcile(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "rewritten: %d, removed: %d\n", len(rep.Rewritten), len(rep.Removed))
		return err
	})
}

func withProject(opts []Option, project string, fn func(*store.Store) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger(os.Stderr)

	reg, err := store.NewRegistry(app.config.Workspace.Root, logger)
	if err != nil {
		return fmt.Errorf("init workspace: %w", err)
	}
	defer reg.Close()

	st, err := reg.Get(project)
	if err != nil {
		return err
	}
	return fn(st)
}

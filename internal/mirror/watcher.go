package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a drift callback fires.
const DefaultDebounce = 200 * time.Millisecond

// Watch observes the body directory and calls onDrift once changes to .md
// files have been quiet for debounce. It returns when ctx is cancelled.
//
// The mirror's own atomic writes are observed as well; onDrift is expected
// to be an idempotent reconcile that finds nothing to do in that case.
func (m *Mirror) Watch(ctx context.Context, debounce time.Duration, onDrift func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir := filepath.Join(m.fs.Root(), BodyDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mirror: watch mkdir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mirror: new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("mirror: watch %s: %w", dir, err)
	}
	m.logger.Info("watcher: started", slog.String("root", dir))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			m.logger.Info("watcher: stopped", slog.String("root", dir))
			return nil

		case <-fire:
			timer = nil
			fire = nil
			onDrift()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, bodyExt) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			m.logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

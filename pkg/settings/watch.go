package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors produce for a single save.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the store whenever the settings file changes on disk and calls onChange
// with the new value. Writes made through Save do not trigger onChange because the
// reloaded value equals the in-memory one. Watch blocks until ctx is canceled.
func (s *Store) Watch(ctx context.Context, onChange func(Settings)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck // best effort on shutdown

	// Watch the directory: atomic renames replace the file inode.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	slog.Debug("[SETTINGS] Watching settings file", "path", s.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		changed, err := s.Reload()
		if err != nil {
			slog.Warn("[SETTINGS] Failed to reload settings after external edit", "error", err)
			return
		}
		if !changed {
			return
		}
		slog.Info("[SETTINGS] Settings file changed on disk, applying", "path", s.path)
		onChange(s.Get())
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[SETTINGS] Watcher error", "error", err)
		}
	}
}

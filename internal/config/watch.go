package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events editors produce for a
// single save (truncate, write, rename).
const DefaultWatchDebounce = 250 * time.Millisecond

const watchedOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// Watch calls onChange once per burst of changes to the file at path and
// blocks until ctx is cancelled. The parent directory is watched so that
// atomic replace-by-rename saves are seen.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	if onChange == nil {
		return errors.New("watch config: onChange callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: resolve path: %w", err)
	}
	dir, base := filepath.Dir(absPath), filepath.Base(absPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}
	slog.Debug("[DEBUG-CONFIG] watching config file", "path", absPath)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !sameFileName(filepath.Base(ev.Name), base) || ev.Op&watchedOps == 0 {
				continue
			}
			slog.Debug("[DEBUG-CONFIG] config file event", "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		case <-timer.C:
			onChange()
		}
	}
}

// sameFileName compares base names case-insensitively, matching Windows
// file system semantics.
func sameFileName(a, b string) bool {
	return strings.EqualFold(a, b)
}

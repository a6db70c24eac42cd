package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for the directory to settle.
const DefaultDebounce = 2 * time.Second

// Watch calls run once immediately and again whenever files in dir change,
// after the directory has been quiet for debounce. It returns when ctx ends
// or run fails.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, run func(context.Context) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	if err := run(ctx); err != nil {
		return err
	}

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
			// mode changes are not content changes
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if isExcluded(filepath.Base(ev.Name)) {
				continue
			}
			logger.Debug("change detected", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("filesystem watcher error", slog.String("error", werr.Error()))

		case <-timer.C:
			if err := run(ctx); err != nil {
				return err
			}
		}
	}
}

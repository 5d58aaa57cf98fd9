package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watch calls run once and then again after every change to the file at
// path, until ctx is done. Bursts of events closer together than debounce
// trigger a single run. Failed runs are logged and do not stop the watcher.
//
// The directory is watched rather than the file itself, since editors
// commonly replace files by renaming a temporary one over them.
func watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, run func(context.Context) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	runLogged := func() {
		if err := run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("generation failed", "error", err)
		}
	}
	runLogged()
	logger.Info("watching for changes", "config", abs)

	// pending is nil while no change awaits a run.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.Debug("config changed", "op", ev.Op.String())
			pending = time.After(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-pending:
			pending = nil
			runLogged()
		}
	}
}

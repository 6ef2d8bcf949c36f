package tui

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce coalesces the burst of events one save produces
const debounce = 100 * time.Millisecond

// WatchStorage calls onChange after the storage file at path is written by
// another process. It watches the parent directory because saves replace the
// file by rename. sqlite sidecar files (-wal, -journal) count as the file.
func WatchStorage(ctx context.Context, path string, logger *zap.Logger, onChange func()) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	base := filepath.Base(path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				logger.Debug("storage changed", zap.String("file", event.Name))
				onChange()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("storage watcher error", zap.Error(err))
		}
	}
}

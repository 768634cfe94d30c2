package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
	"github.com/custodia-labs/tdsync/internal/logger"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigWatcher = (*ConfigStore)(nil)

// watchDebounce collapses the burst of events an editor save produces.
var watchDebounce = 250 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and then calls
// onChange. It blocks until ctx is cancelled.
//
// The directory is watched rather than the file, since saves that replace
// the file through a rename would otherwise drop the watch.
func (s *ConfigStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.filePath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var (
		timer  *time.Timer
		fireCh <-chan time.Time
	)
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
			if !s.isConfigEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fireCh = timer.C

		case <-fireCh:
			fireCh = nil
			if err := s.Load(); err != nil {
				logger.Warn("config: ignoring change to %s: %v", s.filePath, err)
				continue
			}
			logger.Info("config: reloaded %s", s.filePath)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config: watch error: %v", err)
		}
	}
}

// isConfigEvent reports whether event changed the config file contents.
func (s *ConfigStore) isConfigEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.filePath) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}

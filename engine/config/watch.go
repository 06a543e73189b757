package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/fsnotify/fsnotify"
)

// Watch re-loads path whenever it is written or replaced and hands every valid result to fn.
// Invalid files are logged and skipped; the previous configuration stays in effect.
// The parent directory is watched so editors that save by rename are picked up.
// Watch blocks until ctx is done and returns nil, or returns the watcher error that stopped it.
//
// Parameters:
//   - ctx: cancels the watch
//   - path: the config file to follow
//   - fn: called on the watching goroutine with each successfully loaded Config
//
// Returns:
//   - error: a watcher setup or runtime error
func Watch(ctx context.Context, path string, fn func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				logger.Logger().Warn("config reload failed", "path", abs, "err", err)
				continue
			}
			logger.Logger().Info("config reloaded", "path", abs)
			fn(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("config: watch %s: %w", abs, err)
		}
	}
}

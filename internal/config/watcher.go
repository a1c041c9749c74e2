package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes. Editors often write a file in several steps,
// so events are debounced and only the last one triggers a reload.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
}

func NewWatcher(path string, logger *slog.Logger) *Watcher {
	return &Watcher{path: path, logger: logger, debounce: defaultDebounce}
}

// Run blocks until ctx is done. Every valid reload is sent to updates, an invalid file is logged
// and ignored so the previous config stays in use.
func (w *Watcher) Run(ctx context.Context, updates chan<- Config) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating config watcher: %w", err)
	}
	defer fw.Close()

	// The directory is watched since editors replace the file on save.
	if err = fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("error watching config directory: %w", err)
	}

	target := filepath.Clean(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Config watcher error", slog.Any("error", err))
		case <-timer.C:
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("Config reload rejected, keeping the previous one", slog.Any("error", err))
				continue
			}
			w.logger.Info("Config reloaded", slog.String("path", w.path))
			select {
			case updates <- cfg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

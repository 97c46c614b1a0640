package playbook

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher re-parses a playbook file whenever it changes on disk.
type Watcher struct {
	logger      zerolog.Logger
	reloadDelay time.Duration
}

// NewWatcher creates a playbook watcher.
func NewWatcher(logger zerolog.Logger) *Watcher {
	return &Watcher{
		logger:      logger,
		reloadDelay: 500 * time.Millisecond,
	}
}

// Watch blocks until ctx is done, invoking onChange with the re-parsed
// playbook (or parse error) after each change to path. The containing
// directory is watched so that editors replacing the file on save keep
// triggering reloads.
func (w *Watcher) Watch(ctx context.Context, path string, onChange func(*Playbook, error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w.logger.Info().Str("path", path).Msg("Watching playbook")

	var reloadTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Playbook changed")

			// Debounce reload
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(w.reloadDelay, func() {
				onChange(Load(path))
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmi-s/rongame/logger"
)

// watchDebounce collapses editor save bursts into one reload
const watchDebounce = 100 * time.Millisecond

// Watch invalidates cached levels when files in the level directory change.
// The returned channel carries the IDs of changed levels and is closed when
// ctx is done.
func (m *Manager) Watch(ctx context.Context) (<-chan string, error) {
	if m.configDir == "" {
		return nil, fmt.Errorf("no level directory to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(m.configDir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", m.configDir, err)
	}

	changed := make(chan string, 16)
	go m.watchLoop(ctx, w, changed)
	logger.Log.WithField("dir", m.configDir).Info("watching level directory")
	return changed, nil
}

func (m *Manager) watchLoop(ctx context.Context, w *fsnotify.Watcher, changed chan<- string) {
	defer close(changed)
	defer w.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isLevelFile(event.Name) {
				continue
			}
			pending[configID(event.Name)] = true
			timer.Reset(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Log.WithError(err).Warn("level watcher error")

		case <-timer.C:
			for id := range pending {
				m.invalidate(id)
				logger.Log.WithField("level", id).Info("level changed on disk")
				select {
				case changed <- id:
				default:
				}
			}
			clear(pending)
		}
	}
}

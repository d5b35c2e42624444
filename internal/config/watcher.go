package config

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes and hands every
// successfully loaded configuration to a callback. Invalid edits are logged
// and skipped, leaving the previous configuration in effect.
type Watcher struct {
	log      *slog.Logger
	path     string
	callback func(*Config)
	debounce time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for path. A nil logger disables logging.
func NewWatcher(log *slog.Logger, path string, callback func(*Config)) *Watcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Watcher{
		log:      log.With("component", "config_watcher"),
		path:     path,
		callback: callback,
		debounce: DefaultDebounce,
		stop:     make(chan struct{}),
	}
}

// Start begins watching. The watch ends when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory so atomic saves that replace the file are seen.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()

		return err
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer watcher.Close()

		w.log.Info("Watching config file", "path", w.path)

		var timer *time.Timer

		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if timer != nil {
					timer.Stop()
				}

				timer = time.AfterFunc(w.debounce, w.reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				w.log.Warn("Config watcher error", "error", err)

			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends the watch and waits for it to finish. It is safe to call more
// than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("Ignoring invalid config change", "path", w.path, "error", err)

		return
	}

	w.log.Info("Config reloaded", "path", w.path)

	if w.callback != nil {
		w.callback(cfg)
	}
}

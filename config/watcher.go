package config

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/logger"
)

// debounceWindow absorbs the burst of multiple fsnotify events many
// editors and configuration-management tools emit for a single logical
// save (write-then-rename, write-then-chmod, and so on).
const debounceWindow = 200 * time.Millisecond

// Watcher reloads a config file on change and calls onReload with the
// freshly parsed Config. It does not replace any in-flight Monitor —
// callers decide what to do with a reloaded Config (e.g. apply only the
// fields safe to change live, like the crawl rate limit).
type Watcher struct {
	configPath string
	onReload   func(Config)

	fsw *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher constructs a Watcher over configPath. Call Start to begin
// watching; Stop to tear it down.
func NewWatcher(configPath string, onReload func(Config)) *Watcher {
	return &Watcher{configPath: configPath, onReload: onReload, done: make(chan struct{})}
}

// Start begins watching the config file's directory (fsnotify watches
// directories more reliably than single files across editors' various
// save strategies) for changes.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "config: create watcher")
	}
	w.fsw = fsw

	if err := fsw.Add(dirOf(w.configPath)); err != nil {
		fsw.Close()
		return errors.Wrapf(err, "config: watch %s", w.configPath)
	}

	go w.loop()
	return nil
}

// Stop tears down the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) loop() {
	var pending *time.Timer
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.configPath {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceWindow, w.reload)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("config: watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.configPath)
	if err != nil {
		logger.Warnw("config: reload failed, keeping previous config", "error", err)
		return
	}
	logger.Infow("config: reloaded", "path", w.configPath)
	w.onReload(cfg)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

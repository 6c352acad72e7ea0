package config

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/fieldsense/fieldsense/internal/ambient"
	"github.com/fieldsense/fieldsense/internal/logging"
)

// Watcher hot-reloads the config file so privacy blocklist edits apply
// without a restart. Only Current() readers see updates; server address,
// provider and database settings still require a restart.
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
	fsw     *fsnotify.Watcher
}

// Watch loads path and starts watching it for changes.
func Watch(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path}
	w.current.Store(&cfg)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		// Watching is best-effort; a static config still works.
		logging.Warnf("config watch unavailable: %v", err)
		return w, nil
	}
	w.fsw = fsw
	// Watch the directory: editors replace the file on save, which drops a
	// watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		logging.Warnf("config watch %s: %v", path, err)
		fsw.Close()
		w.fsw = nil
		return w, nil
	}
	go w.loop()
	return w, nil
}

// Current returns the latest loaded config.
func (w *Watcher) Current() Config {
	return *w.current.Load()
}

// Blocklist builds the ambient blocklist from the latest config. Handed to
// the pipeline as a function so edits apply to the next request.
func (w *Watcher) Blocklist() ambient.Blocklist {
	return ambient.Blocklist{Extra: w.Current().Privacy.BlockedDomains}
}

// Close stops watching.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path || !ev.Op.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				logging.Warnf("config reload failed: %v", err)
				continue
			}
			w.current.Store(&cfg)
			logging.Infof("config reloaded from %s", w.path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warnf("config watch error: %v", err)
		}
	}
}

package adventure

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/AaronLay10/AdventureEngine/internal/events"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the definition file into an engine when it changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	engine  *Engine
	done    chan struct{}

	mu       sync.Mutex
	onReload func(a *Adventure)
}

// NewWatcher watches the directory holding path. Editors often replace
// files instead of writing in place, so the directory is watched.
func NewWatcher(path string, engine *Engine) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		watcher: fsWatcher,
		path:    abs,
		engine:  engine,
		done:    make(chan struct{}),
	}, nil
}

// OnReload registers fn to run after each successful reload.
func (w *Watcher) OnReload(fn func(a *Adventure)) {
	w.mu.Lock()
	w.onReload = fn
	w.mu.Unlock()
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.Reload()

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("adventure: watch error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Reload loads the file and swaps it in when valid. An invalid file leaves
// the active definition in place.
func (w *Watcher) Reload() error {
	a, err := Load(w.path)
	if err != nil {
		log.Printf("adventure: reload of %s rejected: %v", w.path, err)
		events.Emit("error", "system.error", "adventure reload rejected", map[string]interface{}{
			"path":  w.path,
			"error": err.Error(),
		})
		return err
	}

	w.engine.Swap(a)

	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn != nil {
		fn(a)
	}

	events.Emit("info", "adventure.reloaded", "", map[string]interface{}{
		"adventure_id": a.ID,
		"steps":        len(a.Steps),
	})
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the [video] section of a config file into live Settings whenever the file changes.
// Eye moves in the [camera] section go to the handler set with WithCameraHandler.
type Watcher interface {
	// Reloads returns the number of successful reloads so far.
	//
	// Returns:
	//   - int: reload count
	Reloads() int

	// Close stops watching and waits for the watch goroutine to exit.
	//
	// Returns:
	//   - error: an error if the underlying watcher fails to close
	Close() error
}

type watcher struct {
	mu       *sync.Mutex
	path     string
	settings Settings
	fs       *fsnotify.Watcher
	done     chan struct{}
	reloads  int

	onCamera func(Camera)
	eye      [3]float32
}

var _ Watcher = &watcher{}

// Watch starts watching path and applies every valid rewrite of it to s.
// The parent directory is watched so editors that replace the file atomically are still seen.
// Parse failures are logged and leave the current settings untouched.
//
// Parameters:
//   - path: the config file to watch
//   - s: the live settings to update
//   - options: variadic WatcherBuilderOption functions
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the watch cannot be established
func Watch(path string, s Settings, options ...WatcherBuilderOption) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to resolve config path %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &watcher{
		mu:       &sync.Mutex{},
		path:     abs,
		settings: s,
		fs:       fsw,
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}
	initial := Default().Camera
	if cfg, err := Load(abs); err == nil {
		initial = cfg.Camera
	}
	w.eye = eyeOf(initial)
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("config watcher error", "error", err)
		}
	}
}

func (w *watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil || len(data) == 0 {
		// Truncated mid-write; the following write event carries the content.
		return
	}
	cfg, err := Parse(data, filepath.Ext(w.path))
	if err != nil {
		common.Logger().Warn("config reload skipped", "path", w.path, "error", err)
		return
	}
	w.settings.Replace(cfg.Video)
	if eye := eyeOf(cfg.Camera); eye != w.eye {
		w.eye = eye
		if w.onCamera != nil {
			w.onCamera(cfg.Camera)
		}
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	common.Logger().Info("config reloaded", "path", w.path)
}

func eyeOf(c Camera) [3]float32 {
	return [3]float32{c.EyeX, c.EyeY, c.EyeZ}
}

func (w *watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

package config

// WatcherBuilderOption is a functional option for configuring a watcher.
type WatcherBuilderOption func(w *watcher)

// WithCameraHandler registers a callback for reloads that move the [camera] eye.
// The callback runs on the watch goroutine and only when the eye position differs from the previous file contents.
//
// Parameters:
//   - fn: receives the reloaded camera section
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithCameraHandler(fn func(Camera)) WatcherBuilderOption {
	return func(w *watcher) {
		w.onCamera = fn
	}
}

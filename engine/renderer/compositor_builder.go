package renderer

import (
	"github.com/Carmen-Shannon/c64screen/config"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
)

// CompositorBuilderOption is a functional option applied to a compositor during NewCompositor.
type CompositorBuilderOption func(*compositor)

// WithSettings shares live video settings with the compositor.
//
// Parameters:
//   - s: the settings written by control paths
//
// Returns:
//   - CompositorBuilderOption: a function that applies the settings option
func WithSettings(s config.Settings) CompositorBuilderOption {
	return func(c *compositor) {
		c.settings = s
	}
}

// WithClearColor sets the color the drawable is cleared to before composition.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - CompositorBuilderOption: a function that applies the clear color option
func WithClearColor(color backend.Color) CompositorBuilderOption {
	return func(c *compositor) {
		c.clear = color
	}
}

package engine

import (
	"time"

	"github.com/Carmen-Shannon/c64screen/emulator"
	"github.com/Carmen-Shannon/c64screen/engine/camera"
	"github.com/Carmen-Shannon/c64screen/engine/renderer"
	"github.com/Carmen-Shannon/c64screen/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window the engine runs its event loop on. Without a window the engine runs headless.
//
// Parameters:
//   - w: an open Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithCompositor sets the compositor drawn by the render loop.
//
// Parameters:
//   - c: the compositor
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCompositor(c renderer.Compositor) EngineBuilderOption {
	return func(e *engine) {
		e.compositor = c
	}
}

// WithSource sets the frame source advanced by the tick loop.
// The source is ticked when it implements Ticker and can be halted from the keyboard when it implements Haltable.
//
// Parameters:
//   - s: the frame source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSource(s emulator.FrameSource) EngineBuilderOption {
	return func(e *engine) {
		e.source = s
	}
}

// WithCameraController replaces the default camera key bindings.
//
// Parameters:
//   - cc: the controller that receives keys not bound by the engine
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCameraController(cc camera.CameraController) EngineBuilderOption {
	return func(e *engine) {
		e.controller = cc
	}
}

// WithFrameLimit stops the engine once this many frames have been presented or skipped.
//
// Parameters:
//   - frames: the frame count, 0 = unlimited
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(frames uint64) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = frames
	}
}

// WithBinding adds or replaces an engine key binding.
//
// Parameters:
//   - key: the key code (see common.Key*)
//   - action: the function to run on key press
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBinding(key int, action func()) EngineBuilderOption {
	return func(e *engine) {
		e.bindings[key] = action
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// Package window wraps the GLFW window the video pipeline presents to.
package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a native window with a WebGPU capable surface.
// Every method except the callback setters must be called on the thread that created the window.
type Window interface {
	// SetUpdateCallback sets the function run once per event loop iteration.
	//
	// Parameters:
	//   - callback: the function to run
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function run when the framebuffer size changes.
	//
	// Parameters:
	//   - callback: receives the framebuffer size in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the function run on vertical scroll.
	//
	// Parameters:
	//   - callback: receives the scroll delta
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the function run on key press and repeat.
	//
	// Parameters:
	//   - callback: receives the key code (see common.Key*)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the function run on key release.
	//
	// Parameters:
	//   - callback: receives the key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns the descriptor used to create the WebGPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform surface descriptor
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// SetFullscreen switches between windowed mode and fullscreen on the primary monitor.
	//
	// Parameters:
	//   - fullscreen: true for fullscreen
	SetFullscreen(fullscreen bool)

	// Fullscreen reports whether the window is fullscreen.
	Fullscreen() bool

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// RequestClose makes ProcessMessages return after the current iteration.
	RequestClose()

	// Close destroys the window.
	//
	// Returns:
	//   - error: an error if the window was never created
	Close() error

	// ProcessMessages runs the event loop until the window closes.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// Size limits applied to the window in windowed mode.
const (
	MinWidth  = 320
	MinHeight = 240
	MaxWidth  = 3840
	MaxHeight = 2160
)

type engineWindow struct {
	title string

	width  int
	height int

	fullscreen      bool
	startFullscreen bool
	// windowed is the position and size restored when leaving fullscreen.
	windowed [4]int

	internalWindow any

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	if w.startFullscreen {
		w.SetFullscreen(true)
	}
	return w
}

// newEngineWindow applies the defaults and options without touching the platform.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:  "c64screen",
		width:  1024,
		height: 768,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) SetFullscreen(fullscreen bool) {
	if fullscreen == w.fullscreen {
		return
	}
	platformSetFullscreen(w, fullscreen)
	w.fullscreen = fullscreen
}

func (w *engineWindow) Fullscreen() bool {
	return w.fullscreen
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

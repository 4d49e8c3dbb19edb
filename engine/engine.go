// Package engine drives the presentation loop: a fixed rate tick that advances the frame source,
// a render loop that composites and presents, and the window event loop that feeds key bindings.
package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/config"
	"github.com/Carmen-Shannon/c64screen/emulator"
	"github.com/Carmen-Shannon/c64screen/engine/camera"
	"github.com/Carmen-Shannon/c64screen/engine/profiler"
	"github.com/Carmen-Shannon/c64screen/engine/renderer"
	"github.com/Carmen-Shannon/c64screen/engine/window"
)

// Ticker is a frame source that produces a new screen on every engine tick.
type Ticker interface {
	Tick()
}

// Haltable is a frame source whose halted state can be toggled.
type Haltable interface {
	Halted() bool
	SetHalted(halted bool)
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	ctx         context.Context
	cancel      context.CancelFunc

	window     window.Window
	compositor renderer.Compositor
	source     emulator.FrameSource
	controller camera.CameraController
	bindings   map[int]func()

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	frameLimit       uint64        // stop after this many presented or skipped frames; 0 = unlimited
}

// Engine is the main entry point of the viewer.
// It orchestrates the tick loop, the render loop, and window management.
type Engine interface {
	// Window returns the underlying window, nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Compositor returns the compositor drawn every render frame.
	//
	// Returns:
	//   - renderer.Compositor: the compositor
	Compositor() renderer.Compositor

	// Source returns the frame source advanced every tick.
	//
	// Returns:
	//   - emulator.FrameSource: the frame source
	Source() emulator.FrameSource

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The frame source and the tick callback advance at this rate.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Bind maps a key to an action, replacing any engine binding for that key.
	// Engine bindings take precedence over camera bindings.
	//
	// Parameters:
	//   - key: the key code (see common.Key*)
	//   - action: the function to run on key press
	Bind(key int, action func())

	// HandleKey runs the action bound to key, trying engine bindings first, then the camera controller.
	//
	// Parameters:
	//   - key: the key code
	//
	// Returns:
	//   - bool: true if an action ran
	HandleKey(key int) bool

	// Run starts the tick and render loops and blocks until the window closes, the frame limit is reached,
	// or Quit is called. All loops have exited when Run returns.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
// When a window is configured its resize, key, scroll and update callbacks are wired to the engine.
//
// Parameters:
//   - options: functional options for engine configuration (compositor, source, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
		bindings:        make(map[int]func()),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}
	e.defaultBindings()

	for _, opt := range options {
		opt(e)
	}

	if e.compositor != nil {
		if e.controller == nil {
			e.controller = camera.NewCameraController(e.compositor.Camera())
		}
		c := e.compositor
		e.profiler.SetCounters(func() (uint64, uint64) { return c.Frames(), c.Skipped() })
	}

	if e.window != nil {
		e.wireWindow()
	}

	return e
}

// wireWindow routes window events into the engine. All callbacks run on the window thread.
func (e *engine) wireWindow() {
	e.window.SetResizeCallback(func(width, height int) {
		if e.compositor != nil && width > 0 && height > 0 {
			e.compositor.RequestResize(uint32(width), uint32(height))
		}
	})
	e.window.SetKeyDownCallback(func(keyCode uint32) {
		e.HandleKey(int(keyCode))
	})
	e.window.SetScrollCallback(func(delta float32) {
		if e.compositor == nil || e.controller == nil {
			return
		}
		cam := e.compositor.Camera()
		x, y, z := cam.Eye()
		cam.SetEye(x, y, z-delta*e.controller.PanStep())
	})
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
			return
		default:
		}
		if e.compositor != nil {
			if fs := e.compositor.Settings().Snapshot().Fullscreen; fs != e.window.Fullscreen() {
				e.window.SetFullscreen(fs)
			}
		}
	})
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Compositor() renderer.Compositor {
	return e.compositor
}

func (e *engine) Source() emulator.FrameSource {
	return e.source
}

func (e *engine) Run() {
	e.running.Store(true)
	defer e.running.Store(false)

	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel and cancels the render context so a blocked frame acquisition returns.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		e.cancel()
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Advances the frame source, fires the tick callback, and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	ticking, _ := e.source.(Ticker)
	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if ticking != nil {
				ticking.Tick()
			}
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration draws one compositor frame; frame errors are logged and the loop continues.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Every GPU call is made from this thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if e.compositor != nil {
			if err := e.compositor.Draw(e.ctx); err != nil && !errors.Is(err, context.Canceled) {
				common.Logger().Error("frame failed", "error", err)
			}
			if e.frameLimit > 0 && e.compositor.Frames()+e.compositor.Skipped() >= e.frameLimit {
				e.signalQuit()
			}
		}

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}

		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			elapsed := time.Since(lastRender)
			if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
	common.Logger().Info("engine stopping")
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send; a pending update is replaced.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Bind(key int, action func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bindings[key] = action
}

func (e *engine) HandleKey(key int) bool {
	e.mu.Lock()
	action, ok := e.bindings[key]
	e.mu.Unlock()
	if ok {
		action()
		return true
	}
	if e.controller != nil {
		return e.controller.HandleKey(key)
	}
	return false
}

// defaultBindings installs the video and source key bindings.
func (e *engine) defaultBindings() {
	e.bindings[common.KeyEsc] = e.Quit
	e.bindings[common.KeyF] = e.updateVideo(func(v *config.Video) { v.Fullscreen = !v.Fullscreen })
	e.bindings[common.KeyK] = e.updateVideo(func(v *config.Video) { v.KeepAspectRatio = !v.KeepAspectRatio })
	e.bindings[common.KeyO] = e.updateVideo(func(v *config.Video) { v.Scanlines = !v.Scanlines })
	e.bindings[common.Key1] = e.updateVideo(func(v *config.Video) { v.DrawEmulatorTexture = !v.DrawEmulatorTexture })
	e.bindings[common.KeyM] = e.updateVideo(func(v *config.Video) { v.DotMask = (v.DotMask + 1) % (config.MaxDotMask + 1) })
	e.bindings[common.KeyU] = func() { e.cycle(true) }
	e.bindings[common.KeyI] = func() { e.cycle(false) }
	e.bindings[common.KeyP] = func() {
		if h, ok := e.source.(Haltable); ok {
			h.SetHalted(!h.Halted())
		}
	}
}

func (e *engine) updateVideo(fn func(v *config.Video)) func() {
	return func() {
		if e.compositor != nil {
			e.compositor.Settings().Update(fn)
		}
	}
}

// cycle selects the next available upscaler or filter after the current one, wrapping around.
func (e *engine) cycle(upscaler bool) {
	if e.compositor == nil {
		return
	}
	catalog := e.compositor.Resources().Catalog()
	video := e.compositor.Settings().Snapshot()

	slots, current, selectFn, kind := catalog.FilterSlots(), video.Filter, e.compositor.SelectFilter, "filter"
	if upscaler {
		slots, current, selectFn, kind = catalog.UpscalerSlots(), video.Upscaler, e.compositor.SelectUpscaler, "upscaler"
	}

	n := len(slots)
	for step := 1; step < n; step++ {
		// current may be any int from a config file; keep the index non-negative.
		slot := slots[((current+step)%n+n)%n]
		if !slot.Available {
			continue
		}
		if err := selectFn(slot.Index); err != nil {
			common.Logger().Warn("selection failed", kind, slot.Name, "error", err)
			return
		}
		common.Logger().Info("selected", kind, slot.Name)
		return
	}
}

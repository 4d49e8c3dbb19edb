package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/config"
	"github.com/Carmen-Shannon/c64screen/emulator"
	"github.com/Carmen-Shannon/c64screen/engine/camera"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/kernel"
)

// HaltedAlpha is the cube opacity while the emulator is halted.
const HaltedAlpha = 0.5

// Compositor draws one frame per Draw call: upload, kernel chain, composition and present.
type Compositor interface {
	// Draw renders and presents one frame. At most one frame is in flight; Draw waits for the
	// previous one to complete first. A missing drawable skips the frame without error.
	//
	// Parameters:
	//   - ctx: cancels the wait for the previous frame
	//
	// Returns:
	//   - error: ctx.Err() if the wait was cancelled, or an upload or kernel error
	Draw(ctx context.Context) error

	// RequestResize records a new drawable size, applied by the next Draw.
	//
	// Parameters:
	//   - width, height: the drawable size in pixels
	RequestResize(width, height uint32)

	// Frames returns the number of presented frames.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Skipped returns the number of frames skipped for lack of a drawable.
	//
	// Returns:
	//   - uint64: the skip count
	Skipped() uint64

	// SelectUpscaler switches the upscaler.
	//
	// Parameters:
	//   - i: the upscaler slot
	//
	// Returns:
	//   - error: kernel.ErrKernelUnavailable if the slot holds no kernel
	SelectUpscaler(i int) error

	// SelectFilter switches the filter.
	//
	// Parameters:
	//   - i: the filter slot
	//
	// Returns:
	//   - error: kernel.ErrKernelUnavailable if the slot holds no kernel
	SelectFilter(i int) error

	// Camera returns the camera animating the cube.
	Camera() camera.Camera

	// Settings returns the live video settings read once per frame.
	Settings() config.Settings

	// Resources returns the GPU resources.
	Resources() Resources

	// Gate returns the in-flight frame gate.
	Gate() FrameGate

	// Release waits for the frame in flight and frees the resources.
	Release()
}

type compositor struct {
	mu *sync.Mutex

	res      Resources
	source   emulator.FrameSource
	settings config.Settings
	gate     FrameGate
	clear    backend.Color

	requested common.Extent
	standard  emulator.VideoStandard

	frames  atomic.Uint64
	skipped atomic.Uint64
}

var _ Compositor = &compositor{}

// NewCompositor creates a Compositor drawing source with res.
//
// Parameters:
//   - res: the pipeline resources
//   - source: the emulator frame source
//   - options: variadic CompositorBuilderOption functions
//
// Returns:
//   - Compositor: the compositor
func NewCompositor(res Resources, source emulator.FrameSource, options ...CompositorBuilderOption) Compositor {
	c := &compositor{
		mu:        &sync.Mutex{},
		res:       res,
		source:    source,
		gate:      NewFrameGate(),
		clear:     backend.Color{R: 0, G: 0, B: 0, A: 1},
		requested: res.Size(),
		standard:  source.Standard(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.settings == nil {
		c.settings = config.NewSettings(config.DefaultVideo())
	}
	return c
}

func (c *compositor) Draw(ctx context.Context) error {
	slot, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer slot.Release()

	video := c.settings.Snapshot()
	if !video.Enabled {
		return nil
	}

	if err := c.refresh(); err != nil {
		return err
	}

	b := c.res.Backend()
	frame, err := b.AcquireFrame()
	if errors.Is(err, backend.ErrNoDrawable) {
		c.skipped.Add(1)
		common.Logger().Debug("frame skipped", "error", err)
		return nil
	}
	if err != nil {
		return err
	}

	if err := c.encode(frame, video); err != nil {
		frame.Discard()
		return err
	}
	frame.Present(slot.HandOff())
	c.frames.Add(1)
	return nil
}

// acquire takes the frame slot, polling the device for completions before blocking.
func (c *compositor) acquire(ctx context.Context) (*Slot, error) {
	if slot, ok := c.gate.TryAcquire(); ok {
		return slot, nil
	}
	c.res.Backend().Poll(true)
	return c.gate.Acquire(ctx)
}

// refresh applies a pending resize and a video standard switch.
func (c *compositor) refresh() error {
	c.mu.Lock()
	requested := c.requested
	c.mu.Unlock()

	if requested != c.res.Size() {
		if _, err := c.res.Resize(requested.Width, requested.Height); err != nil {
			return err
		}
	}

	if std := c.source.Standard(); std != c.standard {
		if err := c.res.SetCutout(emulator.GeometryFor(std).Cutout()); err != nil {
			return err
		}
		c.standard = std
		common.Logger().Info("video standard changed", "standard", std.String())
	}
	return nil
}

// encode uploads the screen, runs the kernel chain and records the draws.
func (c *compositor) encode(frame backend.Frame, video config.Video) error {
	if frame == nil {
		panic("renderer: nil frame")
	}
	r := c.res
	b := r.Backend()

	if err := b.WriteTexture(r.Emulator(), c.source.ScreenBuffer(), emulator.BufferStride, emulator.BufferWidth, emulator.BufferHeight); err != nil {
		return fmt.Errorf("failed to upload screen buffer: %w", err)
	}

	frag := NewFragmentUniform(video)
	if err := b.WriteBuffer(r.FragmentUniform(), 0, frag.Marshal()); err != nil {
		return err
	}

	upscaler := r.Catalog().Upscaler(video.Upscaler)
	filter := r.Catalog().Filter(video.Filter)
	applySettings(upscaler, video)
	applySettings(filter, video)
	r.Bloom().SetBlurRadius(video.BloomRadius)

	if err := upscaler.Apply(frame, r.Emulator(), r.Upscaled()); err != nil {
		return err
	}
	if err := r.Bloom().Apply(frame, r.Emulator(), r.Blurred()); err != nil {
		return err
	}
	if err := filter.Apply(frame, r.Upscaled(), r.Filtered()); err != nil {
		return err
	}

	frame.BeginRenderPass(r.Depth(), c.clear)
	var err error
	if video.Fullscreen && !video.KeepAspectRatio {
		c.draw(frame, r.FlatUniform(), r.Filtered(), r.Blurred(), FlatFirst, FlatCount)
	} else {
		err = c.drawScene3D(frame, video)
	}
	frame.EndRenderPass()
	return err
}

func (c *compositor) drawScene3D(frame backend.Frame, video config.Video) error {
	r := c.res
	cam := r.Camera()

	animating := cam.Animating()
	drawBackground := !video.Fullscreen && (animating || !video.DrawEmulatorTexture)
	if animating {
		cam.Step()
		if err := r.WriteCubeTransform(); err != nil {
			return err
		}
	}

	alpha := cam.Alpha()
	if c.source.Halted() {
		alpha = HaltedAlpha
	}
	if err := r.WriteCubeAlpha(alpha); err != nil {
		return err
	}

	if drawBackground {
		c.draw(frame, r.BackgroundUniform(), r.Background(), r.Background(), BackgroundFirst, BackgroundCount)
	}
	if video.DrawEmulatorTexture {
		count := uint32(FaceCount)
		if animating {
			count = CubeCount
		}
		c.draw(frame, r.CubeUniform(), r.Filtered(), r.Blurred(), CubeFirst, count)
	}
	return nil
}

func (c *compositor) draw(frame backend.Frame, transform backend.Buffer, image, bloom backend.Texture, first, count uint32) {
	frame.Draw(backend.Draw{
		Pipeline:  c.res.Pipeline(),
		Vertices:  c.res.Vertices(),
		Transform: transform,
		Fragment:  c.res.FragmentUniform(),
		Image:     image,
		Bloom:     bloom,
		Sampler:   backend.SamplerLinear,
		First:     first,
		Count:     count,
	})
}

// applySettings pushes the live scalar parameters into a kernel.
func applySettings(k kernel.Kernel, video config.Video) {
	desc := k.Descriptor()
	if desc.Blur {
		k.SetBlurRadius(video.BlurRadius)
	}
	switch desc.Params.(type) {
	case kernel.BloomParams:
		k.SetParams(kernel.BloomParams{Factor: video.BloomFactor})
	case kernel.ScanlineParams:
		k.SetParams(kernel.ScanlineParams{Brightness: video.ScanlineBrightness, Weight: video.ScanlineWeight})
	}
}

func (c *compositor) RequestResize(width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = common.Extent{Width: width, Height: height}
}

func (c *compositor) Frames() uint64 {
	return c.frames.Load()
}

func (c *compositor) Skipped() uint64 {
	return c.skipped.Load()
}

func (c *compositor) SelectUpscaler(i int) error {
	if err := c.res.Catalog().CheckUpscaler(i); err != nil {
		return err
	}
	c.settings.Update(func(v *config.Video) { v.Upscaler = i })
	return nil
}

func (c *compositor) SelectFilter(i int) error {
	if err := c.res.Catalog().CheckFilter(i); err != nil {
		return err
	}
	c.settings.Update(func(v *config.Video) { v.Filter = i })
	return nil
}

func (c *compositor) Camera() camera.Camera {
	return c.res.Camera()
}

func (c *compositor) Settings() config.Settings {
	return c.settings
}

func (c *compositor) Resources() Resources {
	return c.res
}

func (c *compositor) Gate() FrameGate {
	return c.gate
}

func (c *compositor) Release() {
	if slot, ok := c.gate.TryAcquire(); ok {
		slot.Release()
	} else {
		c.res.Backend().Poll(true)
	}
	c.res.Release()
}

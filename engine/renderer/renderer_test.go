package renderer

import (
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/config"
	"github.com/Carmen-Shannon/c64screen/emulator"
	"github.com/Carmen-Shannon/c64screen/engine/camera"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/kernel"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	b        backend.Headless
	res      Resources
	comp     Compositor
	pattern  emulator.TestPattern
	settings config.Settings
}

func newFixture(t *testing.T, patternOpts []emulator.TestPatternBuilderOption, opts ...backend.HeadlessBuilderOption) *fixture {
	t.Helper()
	b := backend.NewHeadless(opts...)
	res, err := BuildResources(PipelineContext{
		Backend:     b,
		Camera:      camera.NewCamera(camera.WithAnimationSteps(2)),
		Standard:    emulator.PAL,
		BloomRadius: 1,
	}, WithCatalogOptions(kernel.WithWorkers(2)))
	require.NoError(t, err)

	pattern := emulator.NewTestPattern(append([]emulator.TestPatternBuilderOption{emulator.WithRenderWorkers(1)}, patternOpts...)...)
	settings := config.NewSettings(config.DefaultVideo())
	comp := NewCompositor(res, pattern, WithSettings(settings))
	t.Cleanup(comp.Release)
	return &fixture{b: b, res: res, comp: comp, pattern: pattern, settings: settings}
}

func (f *fixture) draw(t *testing.T) {
	t.Helper()
	require.NoError(t, f.comp.Draw(context.Background()))
}

func (f *fixture) lastFrame(t *testing.T) backend.FrameRecord {
	t.Helper()
	frames := f.b.Frames()
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

func transformAlpha(cmd backend.Command) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(cmd.Transform[64:68]))
}

func TestBuildResourcesSizesToSurface(t *testing.T) {
	f := newFixture(t, nil, backend.WithSurfaceSize(800, 600))
	assert.Equal(t, common.Extent{Width: 800, Height: 600}, f.res.Size())
	assert.Equal(t, 1, f.res.Rebuilds())
	assert.InDelta(t, 800.0/600.0, f.res.Camera().Aspect(), 1e-6)
	assert.Equal(t, emulator.PALGeometry.Cutout(), f.res.Cutout())
}

func TestEveryProgramPassesValidation(t *testing.T) {
	f := newFixture(t, nil, backend.WithShaderValidation())
	for _, slot := range f.res.Catalog().UpscalerSlots() {
		assert.True(t, slot.Available, slot.Name)
	}
	for _, slot := range f.res.Catalog().FilterSlots() {
		assert.True(t, slot.Available, slot.Name)
	}
	f.draw(t)
	assert.True(t, f.lastFrame(t).Presented)
}

func TestResizeCountsRebuilds(t *testing.T) {
	f := newFixture(t, nil)
	base := f.res.Rebuilds()

	rebuilt, err := f.res.Resize(1024, 768)
	require.NoError(t, err)
	assert.False(t, rebuilt)

	rebuilt, err = f.res.Resize(0, 300)
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Equal(t, base, f.res.Rebuilds())

	live := f.b.LiveTextures()
	rebuilt, err = f.res.Resize(640, 480)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, base+1, f.res.Rebuilds())
	assert.Equal(t, common.Extent{Width: 640, Height: 480}, f.b.SurfaceSize())
	// The old depth texture is released.
	assert.Equal(t, live, f.b.LiveTextures())
	assert.Equal(t, uint32(640), f.res.Depth().Descriptor().Width)
}

func TestBuildFailuresWrapInitialization(t *testing.T) {
	for _, name := range []string{shader.Composite, shader.BypassUpscaler, shader.GaussFilter} {
		b := backend.NewHeadless(backend.WithFailingPrograms(name))
		_, err := BuildResources(PipelineContext{Backend: b})
		assert.ErrorIs(t, err, ErrInitialization, name)
		assert.Zero(t, b.LiveTextures(), name)
	}

	_, err := BuildResources(PipelineContext{})
	assert.ErrorIs(t, err, ErrInitialization)
}

func TestDrawRunsKernelChain(t *testing.T) {
	f := newFixture(t, nil)
	f.draw(t)

	frame := f.lastFrame(t)
	assert.True(t, frame.Presented)
	d := frame.Dispatches()
	require.Len(t, d, 3)

	assert.Equal(t, shader.BypassUpscaler, d[0].Program)
	assert.Equal(t, "emulator", d[0].Source)
	assert.Equal(t, "upscaled", d[0].Target)
	assert.Equal(t, [3]uint32{128, 128, 1}, d[0].Workgroups)

	assert.Equal(t, shader.GaussFilter, d[1].Program)
	assert.Equal(t, "blurred", d[1].Target)
	assert.Equal(t, [3]uint32{32, 32, 1}, d[1].Workgroups)

	assert.Equal(t, shader.BypassFilter, d[2].Program)
	assert.Equal(t, "upscaled", d[2].Source)
	assert.Equal(t, "filtered", d[2].Target)

	assert.Equal(t, uint64(1), f.comp.Frames())
	assert.Zero(t, f.comp.Gate().InFlight())
}

func TestDrawUploadsScreenBuffer(t *testing.T) {
	f := newFixture(t, nil)
	f.draw(t)

	tex := f.b.TextureContents(f.res.Emulator())
	buf := f.pattern.ScreenBuffer()
	assert.Equal(t, buf[:emulator.BufferStride], tex[:emulator.BufferStride])
	row := 100
	texStride := EmulatorTextureSize * 4
	assert.Equal(t, buf[row*emulator.BufferStride:(row+1)*emulator.BufferStride], tex[row*texStride:row*texStride+emulator.BufferStride])
}

func TestStaticCubeDrawsFrontFace(t *testing.T) {
	f := newFixture(t, nil)
	f.draw(t)

	draws := f.lastFrame(t).Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(CubeFirst), draws[0].First)
	assert.Equal(t, uint32(FaceCount), draws[0].Count)
	assert.Equal(t, "filtered", draws[0].Image)
	assert.Equal(t, "blurred", draws[0].Bloom)
	assert.Equal(t, float32(1), transformAlpha(draws[0]))
}

func TestHaltedSourceDrawsTranslucent(t *testing.T) {
	f := newFixture(t, []emulator.TestPatternBuilderOption{emulator.WithHalted(true)})
	f.draw(t)

	draws := f.lastFrame(t).Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, float32(HaltedAlpha), transformAlpha(draws[0]))

	f.pattern.SetHalted(false)
	f.draw(t)
	assert.Equal(t, float32(1), transformAlpha(f.lastFrame(t).Draws()[0]))
}

func TestAnimatingCubeDrawsAllFacesAndBackground(t *testing.T) {
	f := newFixture(t, nil)
	f.comp.Camera().RotateLeft()

	for i := 0; i < 2; i++ {
		f.draw(t)
		draws := f.lastFrame(t).Draws()
		require.Len(t, draws, 2)
		assert.Equal(t, uint32(BackgroundFirst), draws[0].First)
		assert.Equal(t, uint32(BackgroundCount), draws[0].Count)
		assert.Equal(t, "background", draws[0].Image)
		assert.Equal(t, "background", draws[0].Bloom)
		assert.Equal(t, uint32(CubeFirst), draws[1].First)
		assert.Equal(t, uint32(CubeCount), draws[1].Count)
	}

	// The animation finished on the second frame.
	f.draw(t)
	draws := f.lastFrame(t).Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(FaceCount), draws[0].Count)
}

func TestFlatModeDrawsQuad(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.Update(func(v *config.Video) { v.Fullscreen = true })
	f.comp.Camera().RotateLeft()
	f.draw(t)

	draws := f.lastFrame(t).Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(FlatFirst), draws[0].First)
	assert.Equal(t, uint32(FlatCount), draws[0].Count)
	assert.Equal(t, math.Float32bits(1), binary.LittleEndian.Uint32(draws[0].Transform[0:4]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(draws[0].Transform[4:8]))
	// Flat frames do not advance the camera.
	assert.True(t, f.comp.Camera().Animating())
}

func TestFullscreenKeepingAspectUsesCube(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.Update(func(v *config.Video) {
		v.Fullscreen = true
		v.KeepAspectRatio = true
	})
	f.comp.Camera().RotateLeft()
	f.draw(t)

	// No background in fullscreen even while animating.
	draws := f.lastFrame(t).Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(CubeCount), draws[0].Count)
}

func TestBackgroundOnlyWithoutEmulatorTexture(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.Update(func(v *config.Video) { v.DrawEmulatorTexture = false })
	f.draw(t)

	draws := f.lastFrame(t).Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(BackgroundFirst), draws[0].First)
}

func TestDisabledRenderingReleasesGate(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.Update(func(v *config.Video) { v.Enabled = false })
	f.draw(t)
	f.draw(t)

	assert.Empty(t, f.b.Frames())
	assert.Zero(t, f.comp.Frames())
	assert.Zero(t, f.comp.Gate().InFlight())
}

func TestMissingDrawableSkipsFrame(t *testing.T) {
	f := newFixture(t, nil)
	f.b.SetDrawableAvailable(false)
	f.draw(t)
	f.draw(t)

	assert.Equal(t, uint64(2), f.comp.Skipped())
	assert.Zero(t, f.comp.Frames())
	assert.Zero(t, f.comp.Gate().InFlight())

	f.b.SetDrawableAvailable(true)
	f.draw(t)
	assert.Equal(t, uint64(1), f.comp.Frames())
}

func TestGateBoundsFramesInFlight(t *testing.T) {
	f := newFixture(t, nil, backend.WithDeferredCompletion())

	for i := 0; i < 3; i++ {
		f.draw(t)
		assert.Equal(t, 1, f.comp.Gate().InFlight())
		assert.Equal(t, 1, f.b.PendingCompletions())
	}
	assert.Equal(t, uint64(3), f.comp.Frames())

	f.b.Poll(true)
	assert.Zero(t, f.comp.Gate().InFlight())
}

func TestDrawHonorsCancelledContext(t *testing.T) {
	f := newFixture(t, nil)
	slot, ok := f.comp.Gate().TryAcquire()
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.comp.Draw(ctx), context.Canceled)
	assert.Empty(t, f.b.Frames())

	slot.Release()
	f.draw(t)
	assert.Equal(t, uint64(1), f.comp.Frames())
}

func TestResizeRequestAppliedOnDraw(t *testing.T) {
	f := newFixture(t, nil)
	base := f.res.Rebuilds()

	f.comp.RequestResize(640, 480)
	f.draw(t)
	f.draw(t)
	assert.Equal(t, base+1, f.res.Rebuilds())
	assert.Equal(t, common.Extent{Width: 640, Height: 480}, f.res.Size())
}

func TestStandardSwitchRewritesVertices(t *testing.T) {
	f := newFixture(t, nil)
	f.pattern.SetStandard(emulator.NTSC)
	f.draw(t)

	assert.Equal(t, emulator.NTSCGeometry.Cutout(), f.res.Cutout())
	data := f.b.BufferContents(f.res.Vertices())
	u := math.Float32frombits(binary.LittleEndian.Uint32(data[FlatFirst*VertexStride+16:]))
	assert.Equal(t, emulator.NTSCGeometry.Cutout().MinX(), u)
}

func TestSelectKernels(t *testing.T) {
	f := newFixture(t, nil, backend.WithFailingPrograms(shader.CRTFilter))

	assert.ErrorIs(t, f.comp.SelectFilter(kernel.FilterCRT), kernel.ErrKernelUnavailable)
	assert.Equal(t, 0, f.settings.Snapshot().Filter)

	require.NoError(t, f.comp.SelectFilter(kernel.FilterGauss))
	require.NoError(t, f.comp.SelectUpscaler(kernel.UpscalerScanline))
	assert.Equal(t, kernel.FilterGauss, f.settings.Snapshot().Filter)

	f.draw(t)
	d := f.lastFrame(t).Dispatches()
	require.Len(t, d, 3)
	assert.Equal(t, shader.ScanlineUpscaler, d[0].Program)
	assert.Equal(t, kernel.ScanlineParams{Brightness: 0.55, Weight: 0.11}.Marshal(), d[0].Params)
	assert.Equal(t, shader.GaussFilter, d[2].Program)
	assert.NotEmpty(t, d[2].Weights)
}

func TestSettingsReachKernels(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.Update(func(v *config.Video) {
		v.Filter = kernel.FilterCRT
		v.BloomFactor = 2
		v.BloomRadius = 3
		v.Scanlines = true
	})
	f.draw(t)

	d := f.lastFrame(t).Dispatches()
	assert.Equal(t, kernel.BloomParams{Factor: 2}.Marshal(), d[2].Params)
	assert.Equal(t, float32(3), f.res.Bloom().Descriptor().BlurRadius)

	frag := f.b.BufferContents(f.res.FragmentUniform())
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(frag[0:4]))
	assert.Equal(t, math.Float32bits(2), binary.LittleEndian.Uint32(frag[12:16]))
}

func TestUnavailableSlotFallsBackWhileDrawing(t *testing.T) {
	f := newFixture(t, nil, backend.WithFailingPrograms(shader.EPXUpscaler))
	f.settings.Update(func(v *config.Video) { v.Upscaler = kernel.UpscalerEPX })
	f.draw(t)
	assert.Equal(t, shader.BypassUpscaler, f.lastFrame(t).Dispatches()[0].Program)
}

func TestBackgroundImageUpload(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:], []byte{200, 10, 20, 255})
	}
	b := backend.NewHeadless()
	res, err := BuildResources(PipelineContext{Backend: b}, WithBackgroundImage(src))
	require.NoError(t, err)
	t.Cleanup(res.Release)

	data := b.TextureContents(res.Background())
	require.Len(t, data, BackgroundSize*BackgroundSize*4)
	assert.InDelta(t, 200, int(data[0]), 2)
	assert.InDelta(t, 10, int(data[1]), 2)
	assert.Equal(t, byte(255), data[3])
}

func TestLoadBackground(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, src))
	require.NoError(t, file.Close())

	img, err := LoadBackground(path, 8)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())
	c := img.RGBAAt(4, 4)
	assert.InDelta(t, 255, int(c.R), 1)
	assert.InDelta(t, 0, int(c.G), 1)

	_, err = LoadBackground(filepath.Join(t.TempDir(), "missing.png"), 8)
	assert.Error(t, err)
}

func TestGradientBackground(t *testing.T) {
	img := GradientBackground(16)
	assert.Equal(t, color.RGBA{R: 0x35, G: 0x28, B: 0x79, A: 0xff}, img.RGBAAt(3, 0))
	assert.Equal(t, color.RGBA{A: 0xff}, img.RGBAAt(3, 15))
}

func TestBadBackgroundPathFallsBack(t *testing.T) {
	b := backend.NewHeadless()
	res, err := BuildResources(PipelineContext{Backend: b}, WithBackgroundPath(filepath.Join(t.TempDir(), "nope.jpg")))
	require.NoError(t, err)
	t.Cleanup(res.Release)

	data := b.TextureContents(res.Background())
	assert.Equal(t, []byte{0x35, 0x28, 0x79, 0xff}, data[0:4])
}

package emulator

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutoutWithinUnitRange(t *testing.T) {
	for _, v := range []VideoStandard{PAL, NTSC} {
		r := GeometryFor(v).Cutout()
		assert.Greater(t, r.Width, float32(0), v.String())
		assert.LessOrEqual(t, r.Width, float32(1), v.String())
		assert.Greater(t, r.Height, float32(0), v.String())
		assert.LessOrEqual(t, r.Height, float32(1), v.String())
		assert.GreaterOrEqual(t, r.X, float32(0), v.String())
		assert.GreaterOrEqual(t, r.Y, float32(0), v.String())
	}
}

func TestPALCutoutValues(t *testing.T) {
	r := PALGeometry.Cutout()
	assert.InDelta(t, 10.0/512, r.X, 1e-7)
	assert.InDelta(t, 9.0/512, r.Y, 1e-7)
	assert.InDelta(t, 392.0/512, r.Width, 1e-7)
	assert.InDelta(t, 268.0/512, r.Height, 1e-7)
}

func TestCutoutScalesLinearly(t *testing.T) {
	g := PALGeometry
	base := g.Cutout()

	g.CanvasWidth *= 2
	g.CanvasHeight *= 2
	g.OverscanWidth *= 2
	g.OverscanHeight *= 2
	doubled := g.Cutout()

	assert.InDelta(t, 2*base.Width, doubled.Width, 1e-6)
	assert.InDelta(t, 2*base.Height, doubled.Height, 1e-6)

	g = PALGeometry
	g.CanvasWidth += 8
	assert.InDelta(t, base.Width+8.0/TextureSize, g.Cutout().Width, 1e-6)
}

func TestParseVideoStandard(t *testing.T) {
	v, err := ParseVideoStandard("NTSC")
	require.NoError(t, err)
	assert.Equal(t, NTSC, v)

	v, err = ParseVideoStandard("pal")
	require.NoError(t, err)
	assert.Equal(t, PAL, v)

	_, err = ParseVideoStandard("secam")
	assert.Error(t, err)
}

func TestRefreshRate(t *testing.T) {
	assert.InDelta(t, 50.125, PAL.RefreshRate(), 1e-9)
	assert.InDelta(t, 59.826, NTSC.RefreshRate(), 1e-9)
}

func TestTestPatternLayout(t *testing.T) {
	p := NewTestPattern(WithRenderWorkers(2))
	buf := p.ScreenBuffer()
	require.Len(t, buf, BufferSize)

	pixel := func(x, y int) [4]byte {
		off := y*BufferStride + x*BytesPerPixel
		return [4]byte{buf[off], buf[off+1], buf[off+2], buf[off+3]}
	}

	g := PALGeometry
	// Inside the canvas on a row that carries no checker cells.
	assert.Equal(t, PaletteColor(colorBackground), pixel(g.LeftBorderWidth+8, g.UpperBorderHeight+8))
	// Border right of the canvas, far below the raster bar of frame 0.
	assert.Equal(t, PaletteColor(colorBorder), pixel(g.LeftBorderWidth+g.CanvasWidth+4, 200))
	// Beyond the visible PAL pixels.
	assert.Equal(t, PaletteColor(0), pixel(BufferWidth-1, 100))
}

func TestTestPatternHaltFreezesFrames(t *testing.T) {
	p := NewTestPattern(WithRenderWorkers(1))
	p.Tick()
	p.Tick()
	assert.Equal(t, uint64(2), p.Frame())

	p.SetHalted(true)
	assert.True(t, p.Halted())
	p.Tick()
	assert.Equal(t, uint64(2), p.Frame())

	p.SetHalted(false)
	p.Tick()
	assert.Equal(t, uint64(3), p.Frame())
}

func TestTestPatternStandardSwitch(t *testing.T) {
	p := NewTestPattern(WithStandard(NTSC), WithRenderWorkers(1))
	assert.Equal(t, NTSC, p.Standard())

	// NTSC has fewer raster lines, so the bottom of the buffer is blank.
	buf := p.ScreenBuffer()
	off := (BufferHeight-1)*BufferStride + 10*BytesPerPixel
	assert.Equal(t, PaletteColor(0), [4]byte{buf[off], buf[off+1], buf[off+2], buf[off+3]})

	p.SetStandard(PAL)
	assert.Equal(t, PAL, p.Standard())
}

func TestScreenBufferConcurrentReaders(t *testing.T) {
	p := NewTestPattern(WithRenderWorkers(2))
	want := p.ScreenBuffer()

	var wg sync.WaitGroup
	bufs := make([][]byte, 8)
	for i := range bufs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bufs[i] = p.ScreenBuffer()
		}()
	}
	wg.Wait()

	for i, buf := range bufs {
		assert.Equal(t, want, buf)
		for _, other := range bufs[i+1:] {
			assert.NotSame(t, &buf[0], &other[0])
		}
	}

	// Ticking must not change a buffer already handed out.
	p.Tick()
	assert.Equal(t, want, bufs[0])
}

func TestTestPatternsShareWorkers(t *testing.T) {
	NewTestPattern(WithRenderWorkers(3))
	before := runtime.NumGoroutine()
	for range 5 {
		p := NewTestPattern(WithRenderWorkers(3))
		p.Tick()
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+1)
}

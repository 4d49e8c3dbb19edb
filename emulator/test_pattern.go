package emulator

import (
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/c64screen/common"
)

// palette is the 16 color C64 palette as RGBA.
var palette = [16][4]byte{
	{0x00, 0x00, 0x00, 0xff}, // black
	{0xff, 0xff, 0xff, 0xff}, // white
	{0x68, 0x37, 0x2b, 0xff}, // red
	{0x70, 0xa4, 0xb2, 0xff}, // cyan
	{0x6f, 0x3d, 0x86, 0xff}, // purple
	{0x58, 0x8d, 0x43, 0xff}, // green
	{0x35, 0x28, 0x79, 0xff}, // blue
	{0xb8, 0xc7, 0x6f, 0xff}, // yellow
	{0x6f, 0x4f, 0x25, 0xff}, // orange
	{0x43, 0x39, 0x00, 0xff}, // brown
	{0x9a, 0x67, 0x59, 0xff}, // light red
	{0x44, 0x44, 0x44, 0xff}, // dark grey
	{0x6c, 0x6c, 0x6c, 0xff}, // grey
	{0x9a, 0xd2, 0x84, 0xff}, // light green
	{0x6c, 0x5e, 0xb5, 0xff}, // light blue
	{0x95, 0x95, 0x95, 0xff}, // light grey
}

const (
	colorBorder     = 14
	colorBackground = 6
	colorForeground = 14

	// barHeight is the height of the raster bar that scrolls through the border.
	barHeight = 8
)

// PaletteColor returns the RGBA value of a C64 palette index (taken modulo 16).
func PaletteColor(index int) [4]byte {
	return palette[index&15]
}

// TestPattern is a synthetic FrameSource that renders a C64 style start screen with a
// raster bar scrolling through the border. It stands in for an emulator core in demo and headless runs.
type TestPattern interface {
	FrameSource

	// Tick renders the next frame unless the pattern is halted.
	Tick()

	// SetHalted freezes or resumes frame production.
	//
	// Parameters:
	//   - halted: true to freeze the current frame
	SetHalted(halted bool)

	// SetStandard switches the video standard, which changes the border geometry.
	//
	// Parameters:
	//   - v: the new video standard
	SetStandard(v VideoStandard)

	// Frame returns the number of frames rendered so far.
	//
	// Returns:
	//   - uint64: the frame counter
	Frame() uint64
}

type testPattern struct {
	mu       *sync.RWMutex
	renderMu *sync.Mutex

	front []byte
	back  []byte

	standard VideoStandard
	halted   bool
	frame    uint64

	bands   int
	workers int
	pool    worker.DynamicWorkerPool
}

var _ TestPattern = &testPattern{}

// NewTestPattern creates a TestPattern and renders its first frame.
//
// Parameters:
//   - options: functional options to configure the pattern
//
// Returns:
//   - TestPattern: the configured pattern source
func NewTestPattern(options ...TestPatternBuilderOption) TestPattern {
	p := &testPattern{
		mu:       &sync.RWMutex{},
		renderMu: &sync.Mutex{},
		front:    make([]byte, BufferSize),
		back:     make([]byte, BufferSize),
		standard: PAL,
		bands:    8,
		workers:  max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(p)
	}
	p.pool = common.SharedPool(p.workers)
	p.render()
	return p
}

// ScreenBuffer returns a copy of the front buffer, so concurrent callers never share a slice.
func (p *testPattern) ScreenBuffer() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.front)
}

func (p *testPattern) Halted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.halted
}

func (p *testPattern) Standard() VideoStandard {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.standard
}

func (p *testPattern) Frame() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frame
}

func (p *testPattern) SetHalted(halted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halted = halted
}

func (p *testPattern) SetStandard(v VideoStandard) {
	p.mu.Lock()
	p.standard = v
	p.mu.Unlock()
	p.render()
}

func (p *testPattern) Tick() {
	if p.Halted() {
		return
	}
	p.mu.Lock()
	p.frame++
	p.mu.Unlock()
	p.render()
}

// render draws the current frame into the back buffer band by band on the worker pool, then swaps.
func (p *testPattern) render() {
	p.renderMu.Lock()
	defer p.renderMu.Unlock()

	p.mu.RLock()
	geometry := GeometryFor(p.standard)
	frame := p.frame
	back := p.back
	p.mu.RUnlock()

	rowsPerBand := (BufferHeight + p.bands - 1) / p.bands
	var wg sync.WaitGroup
	for band := 0; band < p.bands; band++ {
		first := band * rowsPerBand
		last := min(first+rowsPerBand, BufferHeight)
		if first >= last {
			continue
		}
		wg.Add(1)
		p.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				for y := first; y < last; y++ {
					renderLine(back[y*BufferStride:(y+1)*BufferStride], y, frame, geometry)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	p.mu.Lock()
	p.front, p.back = p.back, p.front
	p.mu.Unlock()
}

// renderLine fills one raster line: border color outside the canvas, background inside,
// a checkerboard of 8x8 cells in the canvas and a scrolling raster bar across the border.
func renderLine(line []byte, y int, frame uint64, g Geometry) {
	barTop := int(frame % uint64(g.RasterLines))
	inBar := y >= barTop && y < barTop+barHeight
	inCanvasRows := y >= g.UpperBorderHeight && y < g.UpperBorderHeight+g.CanvasHeight

	for x := 0; x < BufferWidth; x++ {
		color := colorBorder
		if inBar {
			color = int(frame/4+uint64(y-barTop)) & 15
		}
		if x >= g.Pixels || y >= g.RasterLines {
			color = 0
		} else if inCanvasRows && x >= g.LeftBorderWidth && x < g.LeftBorderWidth+g.CanvasWidth {
			cx := (x - g.LeftBorderWidth) / 8
			cy := (y - g.UpperBorderHeight) / 8
			color = colorBackground
			if (cx+cy)%2 == 0 && cy%5 == 0 {
				color = colorForeground
			}
		}
		rgba := palette[color]
		copy(line[x*BytesPerPixel:(x+1)*BytesPerPixel], rgba[:])
	}
}

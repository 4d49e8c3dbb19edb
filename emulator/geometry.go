package emulator

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/c64screen/common"
)

const (
	// TextureSize is the edge length of the square texture the raw screen buffer is uploaded into.
	TextureSize = 512

	// BufferWidth is the number of pixels per raster line in the raw screen buffer (NTSC_PIXELS).
	BufferWidth = 428

	// BufferHeight is the number of raster lines in the raw screen buffer (PAL_RASTERLINES).
	BufferHeight = 312

	// BytesPerPixel is the size of one RGBA pixel in the raw screen buffer.
	BytesPerPixel = 4

	// BufferStride is the byte length of one raster line.
	BufferStride = BufferWidth * BytesPerPixel

	// BufferSize is the byte length of a complete raw screen buffer.
	BufferSize = BufferStride * BufferHeight
)

// VideoStandard selects the video timing the emulator runs with.
type VideoStandard int

const (
	// PAL is the 50 Hz European standard with 312 raster lines.
	PAL VideoStandard = iota

	// NTSC is the 60 Hz American standard with 263 raster lines.
	NTSC
)

func (v VideoStandard) String() string {
	switch v {
	case PAL:
		return "pal"
	case NTSC:
		return "ntsc"
	default:
		return fmt.Sprintf("VideoStandard(%d)", int(v))
	}
}

// RefreshRate returns the frame rate of the standard in frames per second.
func (v VideoStandard) RefreshRate() float64 {
	if v == NTSC {
		return 59.826
	}
	return 50.125
}

// ParseVideoStandard converts "pal" or "ntsc" (case-insensitive) into a VideoStandard.
//
// Parameters:
//   - s: the textual standard name
//
// Returns:
//   - VideoStandard: the parsed standard
//   - error: an error if the name is unknown
func ParseVideoStandard(s string) (VideoStandard, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pal", "":
		return PAL, nil
	case "ntsc":
		return NTSC, nil
	default:
		return PAL, fmt.Errorf("unknown video standard %q", s)
	}
}

// Geometry describes the border and canvas layout of one video standard in raw buffer pixels.
// The overscan fields widen the visible canvas into the border so the cutout shows a frame of border around the screen.
type Geometry struct {
	// LeftBorderWidth is the number of border pixels left of the canvas.
	LeftBorderWidth int
	// UpperBorderHeight is the number of border lines above the canvas.
	UpperBorderHeight int
	// CanvasWidth is the width of the character canvas.
	CanvasWidth int
	// CanvasHeight is the height of the character canvas.
	CanvasHeight int
	// Pixels is the number of visible pixels per raster line.
	Pixels int
	// RasterLines is the number of visible raster lines.
	RasterLines int

	// OverscanLeft is how far the cutout extends left into the border.
	OverscanLeft int
	// OverscanTop is how far the cutout extends up into the border.
	OverscanTop int
	// OverscanWidth is the total horizontal border added to the canvas width.
	OverscanWidth int
	// OverscanHeight is the total vertical border added to the canvas height.
	OverscanHeight int
}

// PALGeometry holds the PAL border and canvas constants.
var PALGeometry = Geometry{
	LeftBorderWidth:   46,
	UpperBorderHeight: 43,
	CanvasWidth:       320,
	CanvasHeight:      200,
	Pixels:            403,
	RasterLines:       312,
	OverscanLeft:      36,
	OverscanTop:       34,
	OverscanWidth:     72,
	OverscanHeight:    68,
}

// NTSCGeometry holds the NTSC border and canvas constants.
var NTSCGeometry = Geometry{
	LeftBorderWidth:   55,
	UpperBorderHeight: 20,
	CanvasWidth:       320,
	CanvasHeight:      200,
	Pixels:            428,
	RasterLines:       263,
	OverscanLeft:      42,
	OverscanTop:       9,
	OverscanWidth:     84,
	OverscanHeight:    18,
}

// GeometryFor returns the geometry constants of a video standard.
func GeometryFor(v VideoStandard) Geometry {
	if v == NTSC {
		return NTSCGeometry
	}
	return PALGeometry
}

// Cutout returns the visible border and canvas area normalized against the emulator texture size.
//
// Returns:
//   - common.Rect: the cutout in texture coordinates
func (g Geometry) Cutout() common.Rect {
	return common.Rect{
		X:      float32(g.LeftBorderWidth-g.OverscanLeft) / TextureSize,
		Y:      float32(g.UpperBorderHeight-g.OverscanTop) / TextureSize,
		Width:  float32(g.CanvasWidth+g.OverscanWidth) / TextureSize,
		Height: float32(g.CanvasHeight+g.OverscanHeight) / TextureSize,
	}
}

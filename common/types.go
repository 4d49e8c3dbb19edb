// package common contains common types that are used throughout c64screen. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Rect is an axis-aligned rectangle in normalized texture coordinates.
// X and Y address the upper-left corner, with Y growing downward as in texture space.
type Rect struct {
	// X is the left edge.
	X float32
	// Y is the upper edge.
	Y float32
	// Width is the horizontal extent.
	Width float32
	// Height is the vertical extent.
	Height float32
}

// MinX returns the left edge.
func (r Rect) MinX() float32 { return r.X }

// MaxX returns the right edge.
func (r Rect) MaxX() float32 { return r.X + r.Width }

// MinY returns the upper edge.
func (r Rect) MinY() float32 { return r.Y }

// MaxY returns the lower edge.
func (r Rect) MaxY() float32 { return r.Y + r.Height }

// FullRect covers an entire texture.
var FullRect = Rect{X: 0, Y: 0, Width: 1, Height: 1}

// Extent is a two dimensional pixel size.
type Extent struct {
	Width  uint32
	Height uint32
}

// Empty reports whether either dimension is zero.
func (e Extent) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

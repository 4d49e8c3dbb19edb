package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestMul4Identity(t *testing.T) {
	var id, m, out [16]float32
	Identity(id[:])
	for i := range m {
		m[i] = float32(i + 1)
	}

	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)

	Mul4(out[:], m[:], id[:])
	assert.Equal(t, m, out)
}

func TestTranslationMovesPoint(t *testing.T) {
	var m [16]float32
	Translation(m[:], 1, -2, 3)

	p := TransformPoint(m[:], 1, 1, 1)
	assert.Equal(t, [4]float32{2, -1, 4, 1}, p)
}

func TestRotationQuarterTurnAboutY(t *testing.T) {
	var m [16]float32
	// Half-length axis must behave like the unit axis.
	Rotation(m[:], math32.Pi/2, 0, 0.5, 0)

	p := TransformPoint(m[:], 1, 0, 0)
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 0, p[1], 1e-6)
	assert.InDelta(t, -1, p[2], 1e-6)
}

func TestRotationZeroAxisIsIdentity(t *testing.T) {
	var m, id [16]float32
	Identity(id[:])
	Rotation(m[:], 1.2, 0, 0, 0)
	assert.Equal(t, id, m)
}

func TestPerspectiveLHDepthRange(t *testing.T) {
	var m [16]float32
	PerspectiveLH(m[:], Radians(65), 4.0/3.0, 0.1, 100)

	near := TransformPoint(m[:], 0, 0, 0.1)
	far := TransformPoint(m[:], 0, 0, 100)
	assert.InDelta(t, 0, near[2]/near[3], 1e-5)
	assert.InDelta(t, 1, far[2]/far[3], 1e-5)

	// Wider viewports shrink the horizontal scale.
	assert.InDelta(t, m[5]/(4.0/3.0), m[0], 1e-6)
}

func TestRadians(t *testing.T) {
	assert.InDelta(t, math32.Pi/2, Radians(90), 1e-6)
	assert.InDelta(t, -math32.Pi, Radians(-180), 1e-6)
}

func TestClampAndDivCeil(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
	assert.Equal(t, float32(0), Clamp(float32(-1), 0, 1))

	assert.Equal(t, uint32(128), DivCeil(2048, 16))
	assert.Equal(t, uint32(27), DivCeil(428, 16))
	assert.Equal(t, uint32(1), DivCeil(1, 16))
}

func TestRectEdges(t *testing.T) {
	r := Rect{X: 0.25, Y: 0.5, Width: 0.5, Height: 0.25}
	assert.Equal(t, float32(0.25), r.MinX())
	assert.Equal(t, float32(0.75), r.MaxX())
	assert.Equal(t, float32(0.5), r.MinY())
	assert.Equal(t, float32(0.75), r.MaxY())
	assert.True(t, Extent{Width: 0, Height: 4}.Empty())
	assert.False(t, Extent{Width: 1, Height: 1}.Empty())
}

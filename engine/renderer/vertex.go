package renderer

import "github.com/Carmen-Shannon/c64screen/common"

// Vertex buffer layout: 8 float32 per vertex (position xyzw, uv, padding).
const (
	VertexFloats = 8
	VertexStride = VertexFloats * 4
	VertexCount  = 48
)

// Draw ranges within the vertex buffer.
const (
	BackgroundFirst = 0
	BackgroundCount = 6

	CubeFirst = 6
	// FaceCount is the number of vertices of one cube face.
	FaceCount = 6
	CubeCount = 6 * FaceCount

	FlatFirst = 42
	FlatCount = 6
)

// Scene extents.
const (
	backgroundHalfWidth  = 6.4
	backgroundHalfHeight = 4.8
	backgroundDepth      = 6.8

	cubeHalfWidth  = 0.64
	cubeHalfHeight = 0.48
	cubeHalfDepth  = 0.64
)

type vec3 [3]float32

// quad is a rectangle given by its corners as seen from the front.
type quad struct {
	topLeft, topRight, bottomLeft, bottomRight vec3
}

// BuildVertices lays out the background quad, the six cube faces and the flat quad.
// Cube and flat texture coordinates map the cutout rectangle; the background uses the whole texture.
//
// Parameters:
//   - cutout: the normalized texture region holding the visible screen
//
// Returns:
//   - []float32: VertexCount * VertexFloats floats
func BuildVertices(cutout common.Rect) []float32 {
	const (
		bw, bh, bd = backgroundHalfWidth, backgroundHalfHeight, backgroundDepth
		dx, dy, dz = cubeHalfWidth, cubeHalfHeight, cubeHalfDepth
	)

	out := make([]float32, 0, VertexCount*VertexFloats)
	out = appendQuad(out, quad{
		vec3{-bw, bh, bd}, vec3{bw, bh, bd}, vec3{-bw, -bh, bd}, vec3{bw, -bh, bd},
	}, common.FullRect)

	faces := []quad{
		// front (-Z)
		{vec3{-dx, dy, -dz}, vec3{dx, dy, -dz}, vec3{-dx, -dy, -dz}, vec3{dx, -dy, -dz}},
		// back (+Z)
		{vec3{dx, dy, dz}, vec3{-dx, dy, dz}, vec3{dx, -dy, dz}, vec3{-dx, -dy, dz}},
		// left (-X)
		{vec3{-dx, dy, dz}, vec3{-dx, dy, -dz}, vec3{-dx, -dy, dz}, vec3{-dx, -dy, -dz}},
		// right (+X)
		{vec3{dx, dy, -dz}, vec3{dx, dy, dz}, vec3{dx, -dy, -dz}, vec3{dx, -dy, dz}},
		// top (+Y)
		{vec3{-dx, dy, dz}, vec3{dx, dy, dz}, vec3{-dx, dy, -dz}, vec3{dx, dy, -dz}},
		// bottom (-Y)
		{vec3{-dx, -dy, -dz}, vec3{dx, -dy, -dz}, vec3{-dx, -dy, dz}, vec3{dx, -dy, dz}},
	}
	for _, f := range faces {
		out = appendQuad(out, f, cutout)
	}

	out = appendQuad(out, quad{
		vec3{-1, 1, 0}, vec3{1, 1, 0}, vec3{-1, -1, 0}, vec3{1, -1, 0},
	}, cutout)
	return out
}

// appendQuad appends two triangles (tl, bl, tr) and (tr, bl, br).
func appendQuad(out []float32, q quad, uv common.Rect) []float32 {
	vertex := func(p vec3, u, v float32) {
		out = append(out, p[0], p[1], p[2], 1, u, v, 0, 0)
	}
	vertex(q.topLeft, uv.MinX(), uv.MinY())
	vertex(q.bottomLeft, uv.MinX(), uv.MaxY())
	vertex(q.topRight, uv.MaxX(), uv.MinY())
	vertex(q.topRight, uv.MaxX(), uv.MinY())
	vertex(q.bottomLeft, uv.MinX(), uv.MaxY())
	vertex(q.bottomRight, uv.MaxX(), uv.MaxY())
	return out
}

// VertexBytes returns the BuildVertices floats as raw bytes for upload.
//
// Parameters:
//   - cutout: the normalized texture region holding the visible screen
//
// Returns:
//   - []byte: VertexCount * VertexStride bytes
func VertexBytes(cutout common.Rect) []byte {
	return common.SliceToBytes(BuildVertices(cutout))
}

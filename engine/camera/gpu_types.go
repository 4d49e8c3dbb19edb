package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUTransformUniform is the GPU-aligned representation of the composite Transform uniform.
// Matches the WGSL Transform struct in composite.wgsl.
// Size: 80 bytes.
type GPUTransformUniform struct {
	MVP   [16]float32 // offset  0: model-view-projection matrix (mat4x4<f32>)
	Alpha float32     // offset 64: screen opacity
	_pad  [3]float32  // offset 68: padding to 80 bytes
}

// Size returns the size of the GPUTransformUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUTransformUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTransformUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUTransformUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.MVP[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(g.Alpha))
	return buf
}

// Uniform returns the current cube transform: projection × model with the current alpha.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - GPUTransformUniform: the uniform record
func Uniform(c Camera) GPUTransformUniform {
	return GPUTransformUniform{MVP: c.Matrix(), Alpha: c.Alpha()}
}

package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/c64screen/config"
)

// GPUFragmentUniform is the GPU-aligned representation of the composite FragmentParams uniform.
// Matches the WGSL FragmentParams struct in composite.wgsl.
// Size: 24 bytes.
type GPUFragmentUniform struct {
	Scanlines          uint32  // offset  0: 1 enables scanlines
	ScanlineBrightness float32 // offset  4
	ScanlineWeight     float32 // offset  8
	BloomFactor        float32 // offset 12
	DotMask            uint32  // offset 16: dot mask mode
	MaskBrightness     float32 // offset 20
}

// NewFragmentUniform fills the uniform from the video settings.
//
// Parameters:
//   - v: the video settings snapshot
//
// Returns:
//   - GPUFragmentUniform: the uniform record
func NewFragmentUniform(v config.Video) GPUFragmentUniform {
	u := GPUFragmentUniform{
		ScanlineBrightness: v.ScanlineBrightness,
		ScanlineWeight:     v.ScanlineWeight,
		BloomFactor:        v.BloomFactor,
		DotMask:            uint32(max(v.DotMask, 0)),
		MaskBrightness:     v.MaskBrightness,
	}
	if v.Scanlines {
		u.Scanlines = 1
	}
	return u
}

// Size returns the size of the GPUFragmentUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (24)
func (g *GPUFragmentUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFragmentUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFragmentUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], g.Scanlines)
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.ScanlineBrightness))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.ScanlineWeight))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.BloomFactor))
	binary.LittleEndian.PutUint32(buf[16:], g.DotMask)
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(g.MaskBrightness))
	return buf
}

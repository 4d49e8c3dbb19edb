package kernel

import (
	"encoding/binary"
	"math"
)

// ParamRecordSize is the size of every kernel parameter uniform buffer.
const ParamRecordSize = 16

// ParamRecord is a kernel parameter block uploaded to binding 3 before each dispatch.
type ParamRecord interface {
	// Marshal serializes the record into a ParamRecordSize byte buffer.
	//
	// Returns:
	//   - []byte: the serialized record
	Marshal() []byte
}

// BloomParams parameterizes the CRT and scanline filters.
// Matches the WGSL BloomParams struct.
type BloomParams struct {
	Factor float32 // offset 0
}

// Marshal serializes the BloomParams into a 16 byte buffer.
//
// Returns:
//   - []byte: the serialized byte buffer
func (p BloomParams) Marshal() []byte {
	buf := make([]byte, ParamRecordSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p.Factor))
	return buf
}

// ScanlineParams parameterizes the scanline upscaler.
// Matches the WGSL ScanlineParams struct.
type ScanlineParams struct {
	Brightness float32 // offset 0
	Weight     float32 // offset 4
}

// Marshal serializes the ScanlineParams into a 16 byte buffer.
//
// Returns:
//   - []byte: the serialized byte buffer
func (p ScanlineParams) Marshal() []byte {
	buf := make([]byte, ParamRecordSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p.Brightness))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.Weight))
	return buf
}

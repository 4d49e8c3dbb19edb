package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order.
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// PerspectiveLH creates a left-handed perspective projection matrix with a finite far plane.
// The camera looks down +Z and depth maps to the WebGPU clip range [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func PerspectiveLH(out []float32, fovY, aspect, near, far float32) {
	yScale := 1.0 / math32.Tan(fovY*0.5)
	xScale := yScale / aspect
	zScale := far / (far - near)
	Identity(out)

	out[0] = xScale
	out[5] = yScale
	out[10] = zScale
	out[11] = 1.0
	out[14] = -near * zScale
	out[15] = 0.0
}

// Translation writes a translation matrix into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: translation along each axis
func Translation(out []float32, x, y, z float32) {
	Identity(out)
	out[12] = x
	out[13] = y
	out[14] = z
}

// Rotation writes a rotation of radians about an arbitrary axis into out.
// The axis does not need to be unit length; a zero axis yields the identity.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - radians: rotation angle, counter-clockwise when looking down the axis
//   - ax, ay, az: rotation axis
func Rotation(out []float32, radians, ax, ay, az float32) {
	length := math32.Sqrt(ax*ax + ay*ay + az*az)
	if length == 0 {
		Identity(out)
		return
	}
	x, y, z := ax/length, ay/length, az/length

	ct := math32.Cos(radians)
	st := math32.Sin(radians)
	ci := 1 - ct

	out[0] = ct + x*x*ci
	out[1] = y*x*ci + z*st
	out[2] = z*x*ci - y*st
	out[3] = 0

	out[4] = x*y*ci - z*st
	out[5] = ct + y*y*ci
	out[6] = z*y*ci + x*st
	out[7] = 0

	out[8] = x*z*ci + y*st
	out[9] = y*z*ci - x*st
	out[10] = ct + z*z*ci
	out[11] = 0

	out[12], out[13], out[14], out[15] = 0, 0, 0, 1
}

// Radians converts degrees to radians.
func Radians(degrees float32) float32 {
	return degrees / 180 * math32.Pi
}

// TransformPoint multiplies the column vector (x, y, z, 1) by m and returns the result.
//
// Parameters:
//   - m: column-major 4x4 matrix
//   - x, y, z: point coordinates
//
// Returns:
//   - [4]float32: the transformed homogeneous point
func TransformPoint(m []float32, x, y, z float32) [4]float32 {
	return [4]float32{
		m[0]*x + m[4]*y + m[8]*z + m[12],
		m[1]*x + m[5]*y + m[9]*z + m[13],
		m[2]*x + m[6]*y + m[10]*z + m[14],
		m[3]*x + m[7]*y + m[11]*z + m[15],
	}
}

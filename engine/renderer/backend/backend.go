// Package backend is the GPU abstraction the post-processing pipeline is written against.
// Resources are opaque handles created and owned by a Backend; work is encoded into a Frame
// which is presented once per displayed frame.
package backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
)

var (
	// ErrNoDrawable is returned by AcquireFrame when the surface has no drawable to render into.
	// It is transient: the caller skips the frame.
	ErrNoDrawable = errors.New("no drawable available")

	// ErrBindingMismatch is returned when a program's declared bindings disagree with its descriptor.
	ErrBindingMismatch = errors.New("program bindings do not match descriptor")
)

// Format is a texel format.
type Format int

const (
	// FormatRGBA8 is 8 bit unsigned normalized RGBA.
	FormatRGBA8 Format = iota

	// FormatR32Float is a single 32 bit float channel.
	FormatR32Float

	// FormatDepth is the depth attachment format.
	FormatDepth
)

// BytesPerPixel returns the texel size of a color format, or 0 for depth.
func (f Format) BytesPerPixel() uint32 {
	switch f {
	case FormatRGBA8, FormatR32Float:
		return 4
	default:
		return 0
	}
}

// TextureUsage is a bit set of the ways a texture may be used.
type TextureUsage uint32

const (
	// UsageSampled allows binding the texture for reads in shaders.
	UsageSampled TextureUsage = 1 << iota

	// UsageStorage allows binding the texture as a compute write target.
	UsageStorage

	// UsageCopyDst allows uploading data with WriteTexture.
	UsageCopyDst

	// UsageRenderTarget allows use as a render pass attachment.
	UsageRenderTarget
)

// BufferUsage selects what a buffer is bound as.
type BufferUsage int

const (
	// BufferUniform is a uniform buffer.
	BufferUniform BufferUsage = iota

	// BufferVertex is a vertex buffer.
	BufferVertex
)

// SamplerKind selects one of the two shared samplers.
type SamplerKind int

const (
	// SamplerNearest samples without filtering, clamped to edge.
	SamplerNearest SamplerKind = iota

	// SamplerLinear samples with bilinear filtering, clamped to edge.
	SamplerLinear
)

// String returns the sampler name.
func (s SamplerKind) String() string {
	if s == SamplerLinear {
		return "linear"
	}
	return "nearest"
}

// TextureDescriptor describes a 2D texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format Format
	Usage  TextureUsage
}

// Texture is a handle to a GPU texture and its default view.
type Texture interface {
	// Descriptor returns the descriptor the texture was created with.
	//
	// Returns:
	//   - TextureDescriptor: the creation descriptor
	Descriptor() TextureDescriptor

	// Release frees the texture. Releasing twice is a no-op.
	Release()
}

// Buffer is a handle to a GPU buffer.
type Buffer interface {
	// Label returns the debug label of the buffer.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Release frees the buffer. Releasing twice is a no-op.
	Release()
}

// ComputeProgramDescriptor describes a compute program and which optional bindings it uses.
// Every compute program binds 0 = source texture, 1 = target storage texture and 2 = sampler.
type ComputeProgramDescriptor struct {
	Program shader.Program
	// Params adds binding 3, a uniform buffer.
	Params bool
	// Weights adds binding 4, an r32float texture read with textureLoad.
	Weights bool
	// PreBlur adds binding 5, a second sampled texture.
	PreBlur bool
}

// ComputeProgram is a compiled compute pipeline.
type ComputeProgram interface {
	// Name returns the program name.
	Name() string

	// Descriptor returns the descriptor the program was created with.
	Descriptor() ComputeProgramDescriptor

	// Release frees the pipeline.
	Release()
}

// VertexFormat is the format of one vertex attribute.
type VertexFormat int

const (
	// VertexFloat32x2 is two float32 values.
	VertexFloat32x2 VertexFormat = iota

	// VertexFloat32x4 is four float32 values.
	VertexFloat32x4
)

// VertexAttribute places one attribute inside a vertex.
type VertexAttribute struct {
	Location uint32
	Offset   uint64
	Format   VertexFormat
}

// RenderPipelineDescriptor describes the compositing pipeline. The program binds 0 = transform uniform,
// 1 = fragment uniform, 2 = image texture, 3 = bloom texture and 4 = sampler.
type RenderPipelineDescriptor struct {
	Program      shader.Program
	VertexStride uint64
	Attributes   []VertexAttribute
	DepthTest    bool
	AlphaBlend   bool
}

// RenderPipeline is a compiled render pipeline.
type RenderPipeline interface {
	// Name returns the program name.
	Name() string

	// Release frees the pipeline.
	Release()
}

// Dispatch is a single compute dispatch.
type Dispatch struct {
	Program    ComputeProgram
	Source     Texture
	Target     Texture
	Sampler    SamplerKind
	Params     Buffer
	Weights    Texture
	PreBlur    Texture
	Workgroups [3]uint32
}

// Draw is a single non-indexed draw inside a render pass.
type Draw struct {
	Pipeline  RenderPipeline
	Vertices  Buffer
	Transform Buffer
	Fragment  Buffer
	Image     Texture
	Bloom     Texture
	Sampler   SamplerKind
	First     uint32
	Count     uint32
}

// Color is a linear RGBA clear color.
type Color struct {
	R, G, B, A float64
}

// Frame is the command stream of one displayed frame. It holds the acquired drawable until
// Present or Discard is called; exactly one of them must be called.
type Frame interface {
	// Dispatch encodes a compute dispatch.
	//
	// Parameters:
	//   - d: the dispatch to encode
	Dispatch(d Dispatch)

	// BeginRenderPass starts the pass that renders into the drawable.
	//
	// Parameters:
	//   - depth: the depth attachment, sized to the drawable
	//   - clear: the clear color
	BeginRenderPass(depth Texture, clear Color)

	// Draw encodes a draw inside the current render pass.
	//
	// Parameters:
	//   - d: the draw to encode
	Draw(d Draw)

	// EndRenderPass ends the current render pass.
	EndRenderPass()

	// Present finishes encoding, submits the work, and presents the drawable.
	// onComplete runs once the GPU has finished the submitted work; it may run on another goroutine
	// or from inside Backend.Poll.
	//
	// Parameters:
	//   - onComplete: completion callback, may be nil
	Present(onComplete func())

	// Discard drops the encoded work and returns the drawable without presenting.
	Discard()
}

// Backend owns the device, the queue and the surface.
type Backend interface {
	// CreateTexture allocates a texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the allocation fails
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture uploads a region starting at the texture origin.
	//
	// Parameters:
	//   - tex: the destination texture, created with UsageCopyDst
	//   - data: the source bytes
	//   - bytesPerRow: the stride of data
	//   - width: region width in texels
	//   - height: region height in texels
	//
	// Returns:
	//   - error: an error if the region does not fit the texture or data is too short
	WriteTexture(tex Texture, data []byte, bytesPerRow, width, height uint32) error

	// CreateBuffer allocates a buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//   - usage: what the buffer is bound as
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if the allocation fails
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)

	// WriteBuffer uploads data into a buffer.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset inside buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write overruns the buffer
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateComputeProgram compiles a compute program with the fixed kernel binding layout.
	// Safe to call from several goroutines.
	//
	// Parameters:
	//   - desc: the program descriptor
	//
	// Returns:
	//   - ComputeProgram: the compiled program
	//   - error: an error if compilation fails or the bindings do not match
	CreateComputeProgram(desc ComputeProgramDescriptor) (ComputeProgram, error)

	// CreateRenderPipeline compiles the compositing pipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - RenderPipeline: the compiled pipeline
	//   - error: an error if compilation fails
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// ConfigureSurface sets the drawable size, typically after a window resize.
	//
	// Parameters:
	//   - width: drawable width in pixels
	//   - height: drawable height in pixels
	ConfigureSurface(width, height uint32)

	// SurfaceSize returns the configured drawable size.
	//
	// Returns:
	//   - common.Extent: the drawable size
	SurfaceSize() common.Extent

	// AcquireFrame acquires the next drawable and starts a command stream for it.
	//
	// Returns:
	//   - Frame: the command stream
	//   - error: ErrNoDrawable if there is nothing to render into
	AcquireFrame() (Frame, error)

	// Poll runs completion callbacks of finished submissions.
	//
	// Parameters:
	//   - wait: block until all submitted work has finished
	Poll(wait bool)

	// Release frees the device and everything created from it.
	Release()
}

// validateComputeProgram checks that a program has a compute entry point and that the optional bindings
// it declares are exactly the ones its descriptor asks for.
func validateComputeProgram(desc ComputeProgramDescriptor) (string, error) {
	p := desc.Program
	entry, ok := p.EntryPoint(shader.StageCompute)
	if !ok {
		return "", fmt.Errorf("%w: %s has no compute entry point", ErrBindingMismatch, p.Name)
	}
	if !p.HasBinding(0, 0) || !p.HasBinding(0, 1) {
		return "", fmt.Errorf("%w: %s must declare source and target at bindings 0 and 1", ErrBindingMismatch, p.Name)
	}
	optional := []struct {
		binding int
		want    bool
		what    string
	}{
		{3, desc.Params, "params"},
		{4, desc.Weights, "weights"},
		{5, desc.PreBlur, "pre-blur"},
	}
	for _, o := range optional {
		if has := p.HasBinding(0, o.binding); has != o.want {
			return "", fmt.Errorf("%w: %s %s binding %d declared=%t expected=%t",
				ErrBindingMismatch, p.Name, o.what, o.binding, has, o.want)
		}
	}
	return entry, nil
}

// checkDispatch panics when a dispatch is missing a resource its program requires.
func checkDispatch(d Dispatch) {
	if d.Program == nil || d.Source == nil || d.Target == nil {
		panic("backend: dispatch without program, source or target")
	}
	desc := d.Program.Descriptor()
	if desc.Params && d.Params == nil {
		panic("backend: " + desc.Program.Name + " dispatched without params buffer")
	}
	if desc.Weights && d.Weights == nil {
		panic("backend: " + desc.Program.Name + " dispatched without weight texture")
	}
	if desc.PreBlur && d.PreBlur == nil {
		panic("backend: " + desc.Program.Name + " dispatched without pre-blur texture")
	}
}

// checkWrite validates a texture upload region.
func checkWrite(desc TextureDescriptor, dataLen int, bytesPerRow, width, height uint32) error {
	if width > desc.Width || height > desc.Height {
		return fmt.Errorf("write region %dx%d exceeds texture %s %dx%d", width, height, desc.Label, desc.Width, desc.Height)
	}
	if bytesPerRow < width*desc.Format.BytesPerPixel() {
		return fmt.Errorf("bytes per row %d too small for %d texels", bytesPerRow, width)
	}
	if height > 0 && uint64(dataLen) < uint64(bytesPerRow)*uint64(height-1)+uint64(width*desc.Format.BytesPerPixel()) {
		return fmt.Errorf("write data too short for texture %s: %d bytes", desc.Label, dataLen)
	}
	return nil
}

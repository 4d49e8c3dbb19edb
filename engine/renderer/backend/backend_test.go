package backend

import (
	"testing"

	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func program(t *testing.T, name string) shader.Program {
	t.Helper()
	lib, err := shader.NewLibrary()
	require.NoError(t, err)
	p, err := lib.Program(name)
	require.NoError(t, err)
	return p
}

func colorTexture(t *testing.T, b Backend, label string, w, h uint32, usage TextureUsage) Texture {
	t.Helper()
	tex, err := b.CreateTexture(TextureDescriptor{Label: label, Width: w, Height: h, Format: FormatRGBA8, Usage: usage})
	require.NoError(t, err)
	return tex
}

func TestComputeProgramBindingValidation(t *testing.T) {
	b := NewHeadless()

	_, err := b.CreateComputeProgram(ComputeProgramDescriptor{Program: program(t, shader.BypassUpscaler)})
	require.NoError(t, err)

	_, err = b.CreateComputeProgram(ComputeProgramDescriptor{Program: program(t, shader.BypassUpscaler), Params: true})
	assert.ErrorIs(t, err, ErrBindingMismatch)

	_, err = b.CreateComputeProgram(ComputeProgramDescriptor{Program: program(t, shader.ScanlineFilter), Params: true, Weights: true})
	assert.ErrorIs(t, err, ErrBindingMismatch)

	_, err = b.CreateComputeProgram(ComputeProgramDescriptor{Program: program(t, shader.ScanlineFilter), Params: true, Weights: true, PreBlur: true})
	require.NoError(t, err)

	_, err = b.CreateComputeProgram(ComputeProgramDescriptor{Program: program(t, shader.Composite)})
	assert.ErrorIs(t, err, ErrBindingMismatch)

	assert.Equal(t, []string{shader.BypassUpscaler, shader.ScanlineFilter}, b.Programs())
}

func TestFailingPrograms(t *testing.T) {
	b := NewHeadless(WithFailingPrograms(shader.CRTFilter))
	_, err := b.CreateComputeProgram(ComputeProgramDescriptor{Program: program(t, shader.CRTFilter), Params: true})
	assert.Error(t, err)
	assert.Empty(t, b.Programs())
}

func TestWriteTexturePacksRows(t *testing.T) {
	b := NewHeadless()
	tex := colorTexture(t, b, "emulator", 4, 4, UsageSampled|UsageCopyDst)

	// 2x2 region from a source with an 12 byte stride.
	src := []byte{
		1, 1, 1, 1, 2, 2, 2, 2, 9, 9, 9, 9,
		3, 3, 3, 3, 4, 4, 4, 4,
	}
	require.NoError(t, b.WriteTexture(tex, src, 12, 2, 2))

	data := b.TextureContents(tex)
	assert.Equal(t, []byte{1, 1, 1, 1, 2, 2, 2, 2}, data[0:8])
	assert.Equal(t, []byte{0, 0, 0, 0}, data[8:12])
	assert.Equal(t, []byte{3, 3, 3, 3, 4, 4, 4, 4}, data[16:24])
}

func TestWriteTextureRejectsBadRegions(t *testing.T) {
	b := NewHeadless()
	tex := colorTexture(t, b, "small", 2, 2, UsageSampled|UsageCopyDst)
	assert.Error(t, b.WriteTexture(tex, make([]byte, 64), 16, 4, 1))
	assert.Error(t, b.WriteTexture(tex, make([]byte, 4), 8, 2, 2))

	ro := colorTexture(t, b, "sampled", 2, 2, UsageSampled)
	assert.Error(t, b.WriteTexture(ro, make([]byte, 16), 8, 2, 2))
}

func TestWriteBufferBounds(t *testing.T) {
	b := NewHeadless()
	buf, err := b.CreateBuffer("uniform", 16, BufferUniform)
	require.NoError(t, err)

	require.NoError(t, b.WriteBuffer(buf, 12, []byte{7, 7, 7, 7}))
	assert.Equal(t, []byte{7, 7, 7, 7}, b.BufferContents(buf)[12:])
	assert.Error(t, b.WriteBuffer(buf, 13, []byte{1, 2, 3, 4}))
}

func TestNoDrawable(t *testing.T) {
	b := NewHeadless(WithDrawableAvailable(false))
	_, err := b.AcquireFrame()
	assert.ErrorIs(t, err, ErrNoDrawable)

	b.SetDrawableAvailable(true)
	b.ConfigureSurface(0, 600)
	_, err = b.AcquireFrame()
	assert.ErrorIs(t, err, ErrNoDrawable)

	b.ConfigureSurface(800, 600)
	f, err := b.AcquireFrame()
	require.NoError(t, err)
	f.Discard()

	frames := b.Frames()
	require.Len(t, frames, 1)
	assert.False(t, frames[0].Presented)
}

func TestFrameRecordsCommands(t *testing.T) {
	b := NewHeadless()
	src := colorTexture(t, b, "emulator", 512, 512, UsageSampled|UsageCopyDst)
	dst := colorTexture(t, b, "upscaled", 2048, 2048, UsageSampled|UsageStorage)
	depth, err := b.CreateTexture(TextureDescriptor{Label: "depth", Width: 1024, Height: 768, Format: FormatDepth, Usage: UsageRenderTarget})
	require.NoError(t, err)

	prog, err := b.CreateComputeProgram(ComputeProgramDescriptor{Program: program(t, shader.BypassUpscaler)})
	require.NoError(t, err)
	pipe, err := b.CreateRenderPipeline(RenderPipelineDescriptor{
		Program:      program(t, shader.Composite),
		VertexStride: 32,
		Attributes:   []VertexAttribute{{Location: 0, Format: VertexFloat32x4}, {Location: 1, Offset: 16, Format: VertexFloat32x2}},
		DepthTest:    true,
		AlphaBlend:   true,
	})
	require.NoError(t, err)

	vertices, err := b.CreateBuffer("vertices", 48*32, BufferVertex)
	require.NoError(t, err)
	transform, err := b.CreateBuffer("transform", 80, BufferUniform)
	require.NoError(t, err)
	fragment, err := b.CreateBuffer("fragment", 24, BufferUniform)
	require.NoError(t, err)
	require.NoError(t, b.WriteBuffer(transform, 64, []byte{1, 2, 3, 4}))

	f, err := b.AcquireFrame()
	require.NoError(t, err)
	f.Dispatch(Dispatch{Program: prog, Source: src, Target: dst, Sampler: SamplerNearest, Workgroups: [3]uint32{128, 128, 1}})
	f.BeginRenderPass(depth, Color{A: 1})
	f.Draw(Draw{Pipeline: pipe, Vertices: vertices, Transform: transform, Fragment: fragment, Image: dst, Bloom: src, Sampler: SamplerLinear, First: 6, Count: 36})
	f.EndRenderPass()

	completed := 0
	f.Present(func() { completed++ })
	assert.Equal(t, 1, completed)

	frames := b.Frames()
	require.Len(t, frames, 1)
	rec := frames[0]
	assert.True(t, rec.Presented)
	require.Len(t, rec.Commands, 4)

	dispatches := rec.Dispatches()
	require.Len(t, dispatches, 1)
	assert.Equal(t, shader.BypassUpscaler, dispatches[0].Program)
	assert.Equal(t, "emulator", dispatches[0].Source)
	assert.Equal(t, "upscaled", dispatches[0].Target)
	assert.Equal(t, [3]uint32{128, 128, 1}, dispatches[0].Workgroups)

	draws := rec.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(6), draws[0].First)
	assert.Equal(t, uint32(36), draws[0].Count)
	assert.Equal(t, []byte{1, 2, 3, 4}, draws[0].Transform[64:68])
}

func TestDeferredCompletion(t *testing.T) {
	b := NewHeadless(WithDeferredCompletion())
	f, err := b.AcquireFrame()
	require.NoError(t, err)

	done := false
	f.Present(func() { done = true })
	assert.False(t, done)
	assert.Equal(t, 1, b.PendingCompletions())

	b.Poll(true)
	assert.True(t, done)
	assert.Equal(t, 0, b.PendingCompletions())
}

func TestFrameHistory(t *testing.T) {
	b := NewHeadless(WithFrameHistory(2))
	for i := 0; i < 5; i++ {
		f, err := b.AcquireFrame()
		require.NoError(t, err)
		if i == 4 {
			f.Discard()
			continue
		}
		f.Present(nil)
	}
	frames := b.Frames()
	require.Len(t, frames, 2)
	assert.True(t, frames[0].Presented)
	assert.False(t, frames[1].Presented)
}

func TestFrameMisuse(t *testing.T) {
	b := NewHeadless()
	f, err := b.AcquireFrame()
	require.NoError(t, err)

	assert.Panics(t, func() { _, _ = b.AcquireFrame() })
	assert.Panics(t, func() { f.Draw(Draw{}) })
	assert.Panics(t, func() { f.Dispatch(Dispatch{}) })

	f.Present(nil)
	assert.Panics(t, func() { f.Present(nil) })
}

func TestLiveTextures(t *testing.T) {
	b := NewHeadless()
	a := colorTexture(t, b, "a", 1, 1, UsageSampled)
	colorTexture(t, b, "b", 1, 1, UsageSampled)
	assert.Equal(t, 2, b.LiveTextures())

	a.Release()
	a.Release()
	assert.Equal(t, 1, b.LiveTextures())
}

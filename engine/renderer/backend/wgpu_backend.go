package backend

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// computeBindKey identifies the resource tuple of a cached compute bind group.
type computeBindKey struct {
	program *wgpuProgram
	source  *wgpuTexture
	target  *wgpuTexture
	weights *wgpuTexture
	preBlur *wgpuTexture
	params  *wgpuBuffer
	sampler SamplerKind
}

// drawBindKey identifies the resource tuple of a cached render bind group.
type drawBindKey struct {
	pipeline  *wgpuPipeline
	transform *wgpuBuffer
	fragment  *wgpuBuffer
	image     *wgpuTexture
	bloom     *wgpuTexture
	sampler   SamplerKind
}

type wgpuBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	size          common.Extent

	forceFallbackAdapter bool

	samplers          map[SamplerKind]*wgpu.Sampler
	computeBindGroups map[computeBindKey]*wgpu.BindGroup
	drawBindGroups    map[drawBindKey]*wgpu.BindGroup

	frame *wgpuFrame
}

var _ Backend = &wgpuBackend{}

// NewWGPU creates a WebGPU backend rendering into the surface described by surfaceDescriptor.
// Like the rest of the engine it panics when no adapter or device can be obtained. The calling
// goroutine is locked to its OS thread and must be the only one issuing frame work.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from Window.SurfaceDescriptor
//   - width: initial drawable width in pixels
//   - height: initial drawable height in pixels
//   - options: variadic WGPUBuilderOption functions
//
// Returns:
//   - Backend: the WebGPU backend
func NewWGPU(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height uint32, options ...WGPUBuilderOption) Backend {
	runtime.LockOSThread()
	b := &wgpuBackend{
		mu:                &sync.Mutex{},
		instance:          wgpu.CreateInstance(nil),
		presentMode:       wgpu.PresentModeFifo,
		samplers:          make(map[SamplerKind]*wgpu.Sampler),
		computeBindGroups: make(map[computeBindKey]*wgpu.BindGroup),
		drawBindGroups:    make(map[drawBindKey]*wgpu.BindGroup),
	}
	for _, opt := range options {
		opt(b)
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "c64screen Device",
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	for kind, filter := range map[SamplerKind]wgpu.FilterMode{
		SamplerNearest: wgpu.FilterModeNearest,
		SamplerLinear:  wgpu.FilterModeLinear,
	} {
		s, err := d.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         kind.String() + " Sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     filter,
			MinFilter:     filter,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMinClamp:   0,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			panic(err)
		}
		b.samplers[kind] = s
	}

	common.Logger().Info("webgpu device ready")
	b.ConfigureSurface(width, height)
	return b
}

func (b *wgpuBackend) ConfigureSurface(width, height uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.size = common.Extent{Width: width, Height: height}
	if b.size.Empty() {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuBackend) SurfaceSize() common.Extent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func textureFormat(f Format) wgpu.TextureFormat {
	switch f {
	case FormatR32Float:
		return wgpu.TextureFormatR32Float
	case FormatDepth:
		return wgpu.TextureFormatDepth24Plus
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func textureUsage(u TextureUsage) wgpu.TextureUsage {
	var usage wgpu.TextureUsage
	if u&UsageSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if u&UsageStorage != 0 {
		usage |= wgpu.TextureUsageStorageBinding
	}
	if u&UsageCopyDst != 0 {
		usage |= wgpu.TextureUsageCopyDst
	}
	if u&UsageRenderTarget != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	return usage
}

type wgpuTexture struct {
	b        *wgpuBackend
	desc     TextureDescriptor
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	released bool
}

func (t *wgpuTexture) Descriptor() TextureDescriptor { return t.desc }

func (t *wgpuTexture) Release() {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.b.evictTexture(t)
	t.view.Release()
	t.texture.Release()
}

func (b *wgpuBackend) CreateTexture(desc TextureDescriptor) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     textureUsage(desc.Usage),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        textureFormat(desc.Format),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %s: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for %s: %w", desc.Label, err)
	}
	return &wgpuTexture{b: b, desc: desc, texture: tex, view: view}, nil
}

func (b *wgpuBackend) WriteTexture(tex Texture, data []byte, bytesPerRow, width, height uint32) error {
	t := tex.(*wgpuTexture)
	if err := checkWrite(t.desc, len(data), bytesPerRow, width, height); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

type wgpuBuffer struct {
	b        *wgpuBackend
	label    string
	size     uint64
	buffer   *wgpu.Buffer
	released bool
}

func (buf *wgpuBuffer) Label() string { return buf.label }
func (buf *wgpuBuffer) Size() uint64  { return buf.size }

func (buf *wgpuBuffer) Release() {
	buf.b.mu.Lock()
	defer buf.b.mu.Unlock()
	if buf.released {
		return
	}
	buf.released = true
	buf.b.evictBuffer(buf)
	buf.buffer.Release()
}

func (b *wgpuBackend) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	if usage == BufferVertex {
		u = wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            u,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %s: %w", label, err)
	}
	return &wgpuBuffer{b: b, label: label, size: size, buffer: buf}, nil
}

func (b *wgpuBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	wb := buf.(*wgpuBuffer)
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("write of %d bytes at %d overruns buffer %s of %d bytes", len(data), offset, wb.label, wb.size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(wb.buffer, offset, data)
	return nil
}

type wgpuProgram struct {
	b        *wgpuBackend
	desc     ComputeProgramDescriptor
	layout   *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline
}

func (p *wgpuProgram) Name() string                         { return p.desc.Program.Name }
func (p *wgpuProgram) Descriptor() ComputeProgramDescriptor { return p.desc }

func (p *wgpuProgram) Release() {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	for k, bg := range p.b.computeBindGroups {
		if k.program == p {
			bg.Release()
			delete(p.b.computeBindGroups, k)
		}
	}
	p.pipeline.Release()
	p.layout.Release()
}

// computeLayoutEntries builds the fixed kernel layout: source, target, sampler and the optional bindings.
func computeLayoutEntries(desc ComputeProgramDescriptor) []wgpu.BindGroupLayoutEntry {
	entries := []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        wgpu.TextureFormatRGBA8Unorm,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageCompute,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		},
	}
	if desc.Params {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    3,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeUniform,
			},
		})
	}
	if desc.Weights {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    4,
			Visibility: wgpu.ShaderStageCompute,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	if desc.PreBlur {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    5,
			Visibility: wgpu.ShaderStageCompute,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	return entries
}

func (b *wgpuBackend) CreateComputeProgram(desc ComputeProgramDescriptor) (ComputeProgram, error) {
	entry, err := validateComputeProgram(desc)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	name := desc.Program.Name
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Program.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	defer module.Release()

	bgl, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   name + " Bind Group Layout",
		Entries: computeLayoutEntries(desc),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout for %s: %w", name, err)
	}
	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            name,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("failed to create pipeline layout for %s: %w", name, err)
	}
	defer layout.Release()

	pipeline, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  name + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("failed to create compute pipeline %s: %w", name, err)
	}
	return &wgpuProgram{b: b, desc: desc, layout: bgl, pipeline: pipeline}, nil
}

type wgpuPipeline struct {
	b        *wgpuBackend
	name     string
	layout   *wgpu.BindGroupLayout
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuPipeline) Name() string { return p.name }

func (p *wgpuPipeline) Release() {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	for k, bg := range p.b.drawBindGroups {
		if k.pipeline == p {
			bg.Release()
			delete(p.b.drawBindGroups, k)
		}
	}
	p.pipeline.Release()
	p.layout.Release()
}

func vertexFormat(f VertexFormat) wgpu.VertexFormat {
	if f == VertexFloat32x2 {
		return wgpu.VertexFormatFloat32x2
	}
	return wgpu.VertexFormatFloat32x4
}

func (b *wgpuBackend) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	vsEntry, ok := desc.Program.EntryPoint(shader.StageVertex)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no vertex entry point", ErrBindingMismatch, desc.Program.Name)
	}
	fsEntry, ok := desc.Program.EntryPoint(shader.StageFragment)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no fragment entry point", ErrBindingMismatch, desc.Program.Name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	name := desc.Program.Name
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Program.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	defer module.Release()

	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	bgl, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: name + " Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: visibility, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: visibility, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 2, Visibility: wgpu.ShaderStageFragment, Texture: wgpu.TextureBindingLayout{
				SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D,
			}},
			{Binding: 3, Visibility: wgpu.ShaderStageFragment, Texture: wgpu.TextureBindingLayout{
				SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D,
			}},
			{Binding: 4, Visibility: wgpu.ShaderStageFragment, Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout for %s: %w", name, err)
	}
	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            name,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("failed to create pipeline layout for %s: %w", name, err)
	}
	defer layout.Release()

	attrs := make([]wgpu.VertexAttribute, 0, len(desc.Attributes))
	for _, a := range desc.Attributes {
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         a.Offset,
			ShaderLocation: a.Location,
		})
	}

	target := wgpu.ColorTargetState{
		Format:    b.surfaceFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.AlphaBlend {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	}
	depthCompare := wgpu.CompareFunctionAlways
	if desc.DepthTest {
		depthCompare = wgpu.CompareFunctionLess
	}

	pipeline, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  name + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vsEntry,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: desc.VertexStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attrs,
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fsEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: desc.DepthTest,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("failed to create render pipeline %s: %w", name, err)
	}
	return &wgpuPipeline{b: b, name: name, layout: bgl, pipeline: pipeline}, nil
}

func asTexture(t Texture) *wgpuTexture {
	if t == nil {
		return nil
	}
	return t.(*wgpuTexture)
}

func asBuffer(b Buffer) *wgpuBuffer {
	if b == nil {
		return nil
	}
	return b.(*wgpuBuffer)
}

// evictTexture drops every cached bind group referencing t. Callers hold b.mu.
func (b *wgpuBackend) evictTexture(t *wgpuTexture) {
	for k, bg := range b.computeBindGroups {
		if k.source == t || k.target == t || k.weights == t || k.preBlur == t {
			bg.Release()
			delete(b.computeBindGroups, k)
		}
	}
	for k, bg := range b.drawBindGroups {
		if k.image == t || k.bloom == t {
			bg.Release()
			delete(b.drawBindGroups, k)
		}
	}
}

// evictBuffer drops every cached bind group referencing buf. Callers hold b.mu.
func (b *wgpuBackend) evictBuffer(buf *wgpuBuffer) {
	for k, bg := range b.computeBindGroups {
		if k.params == buf {
			bg.Release()
			delete(b.computeBindGroups, k)
		}
	}
	for k, bg := range b.drawBindGroups {
		if k.transform == buf || k.fragment == buf {
			bg.Release()
			delete(b.drawBindGroups, k)
		}
	}
}

// computeBindGroup returns the cached bind group for a dispatch, creating it on first use. Callers hold b.mu.
func (b *wgpuBackend) computeBindGroup(d Dispatch) (*wgpu.BindGroup, *wgpuProgram, error) {
	key := computeBindKey{
		program: d.Program.(*wgpuProgram),
		source:  asTexture(d.Source),
		target:  asTexture(d.Target),
		weights: asTexture(d.Weights),
		preBlur: asTexture(d.PreBlur),
		params:  asBuffer(d.Params),
		sampler: d.Sampler,
	}
	if bg, ok := b.computeBindGroups[key]; ok {
		return bg, key.program, nil
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: key.source.view},
		{Binding: 1, TextureView: key.target.view},
		{Binding: 2, Sampler: b.samplers[d.Sampler]},
	}
	desc := key.program.desc
	if desc.Params {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 3, Buffer: key.params.buffer, Offset: 0, Size: wgpu.WholeSize})
	}
	if desc.Weights {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 4, TextureView: key.weights.view})
	}
	if desc.PreBlur {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 5, TextureView: key.preBlur.view})
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Program.Name + " Bind Group",
		Layout:  key.program.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, nil, err
	}
	b.computeBindGroups[key] = bg
	return bg, key.program, nil
}

// drawBindGroup returns the cached bind group for a draw, creating it on first use. Callers hold b.mu.
func (b *wgpuBackend) drawBindGroup(d Draw) (*wgpu.BindGroup, *wgpuPipeline, error) {
	key := drawBindKey{
		pipeline:  d.Pipeline.(*wgpuPipeline),
		transform: asBuffer(d.Transform),
		fragment:  asBuffer(d.Fragment),
		image:     asTexture(d.Image),
		bloom:     asTexture(d.Bloom),
		sampler:   d.Sampler,
	}
	if bg, ok := b.drawBindGroups[key]; ok {
		return bg, key.pipeline, nil
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  key.pipeline.name + " Bind Group",
		Layout: key.pipeline.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: key.transform.buffer, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: key.fragment.buffer, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 2, TextureView: key.image.view},
			{Binding: 3, TextureView: key.bloom.view},
			{Binding: 4, Sampler: b.samplers[d.Sampler]},
		},
	})
	if err != nil {
		return nil, nil, err
	}
	b.drawBindGroups[key] = bg
	return bg, key.pipeline, nil
}

func (b *wgpuBackend) AcquireFrame() (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame != nil {
		panic("backend: previous frame not presented or discarded")
	}
	if b.size.Empty() {
		return nil, ErrNoDrawable
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDrawable, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("%w: %v", ErrNoDrawable, err)
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}

	b.frame = &wgpuFrame{
		b:       b,
		encoder: encoder,
		surface: surfaceTexture,
		view:    view,
	}
	return b.frame, nil
}

func (b *wgpuBackend) Poll(wait bool) {
	b.device.Poll(wait, nil)
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, bg := range b.computeBindGroups {
		bg.Release()
		delete(b.computeBindGroups, k)
	}
	for k, bg := range b.drawBindGroups {
		bg.Release()
		delete(b.drawBindGroups, k)
	}
	for _, s := range b.samplers {
		s.Release()
	}
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}

type wgpuFrame struct {
	b       *wgpuBackend
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	surface *wgpu.Texture
	view    *wgpu.TextureView
	done    bool
}

var _ Frame = &wgpuFrame{}

func (f *wgpuFrame) Dispatch(d Dispatch) {
	if f.done || f.pass != nil {
		panic("backend: dispatch on finished frame or inside render pass")
	}
	checkDispatch(d)

	f.b.mu.Lock()
	defer f.b.mu.Unlock()

	bg, program, err := f.b.computeBindGroup(d)
	if err != nil {
		common.Logger().Warn("dispatch skipped", "program", d.Program.Name(), "error", err)
		return
	}
	pass := f.encoder.BeginComputePass(nil)
	pass.SetPipeline(program.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(d.Workgroups[0], d.Workgroups[1], d.Workgroups[2])
	pass.End()
}

func (f *wgpuFrame) BeginRenderPass(depth Texture, clear Color) {
	if f.done || f.pass != nil {
		panic("backend: render pass on finished frame or already open")
	}
	f.b.mu.Lock()
	defer f.b.mu.Unlock()

	f.pass = f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       f.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: clear.R, G: clear.G, B: clear.B, A: clear.A},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            asTexture(depth).view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
}

func (f *wgpuFrame) Draw(d Draw) {
	if f.pass == nil {
		panic("backend: draw outside render pass")
	}
	f.b.mu.Lock()
	defer f.b.mu.Unlock()

	bg, pipeline, err := f.b.drawBindGroup(d)
	if err != nil {
		common.Logger().Warn("draw skipped", "pipeline", d.Pipeline.Name(), "error", err)
		return
	}
	f.pass.SetPipeline(pipeline.pipeline)
	f.pass.SetBindGroup(0, bg, nil)
	f.pass.SetVertexBuffer(0, asBuffer(d.Vertices).buffer, 0, wgpu.WholeSize)
	f.pass.Draw(d.Count, 1, d.First, 0)
}

func (f *wgpuFrame) EndRenderPass() {
	if f.pass == nil {
		panic("backend: no render pass open")
	}
	f.pass.End()
	f.pass = nil
}

func (f *wgpuFrame) release() {
	f.done = true
	f.encoder.Release()
	f.view.Release()
	f.surface.Release()
	f.b.mu.Lock()
	f.b.frame = nil
	f.b.mu.Unlock()
}

func (f *wgpuFrame) Present(onComplete func()) {
	if f.done || f.pass != nil {
		panic("backend: present on finished frame or with open render pass")
	}

	commandBuffer, err := f.encoder.Finish(nil)
	if err != nil {
		common.Logger().Error("frame encoding failed", "error", err)
		f.release()
		if onComplete != nil {
			onComplete()
		}
		return
	}

	f.b.mu.Lock()
	f.b.queue.Submit(commandBuffer)
	if onComplete != nil {
		f.b.queue.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) {
			onComplete()
		})
	}
	f.b.surface.Present()
	f.b.mu.Unlock()

	commandBuffer.Release()
	f.release()
}

func (f *wgpuFrame) Discard() {
	if f.done {
		panic("backend: frame already finished")
	}
	if f.pass != nil {
		f.pass.End()
		f.pass = nil
	}
	f.release()
}

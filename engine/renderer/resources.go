// Package renderer owns the GPU resources of the video pipeline and composes each frame: upload,
// kernel chain, then the flat quad or the animated cube with its background.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/emulator"
	"github.com/Carmen-Shannon/c64screen/engine/camera"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/kernel"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
)

// ErrInitialization wraps every failure to build the pipeline resources.
var ErrInitialization = errors.New("renderer initialization failed")

// Fixed texture sizes.
const (
	EmulatorTextureSize = emulator.TextureSize
	BlurredTextureSize  = emulator.TextureSize
	UpscaledTextureSize = 2048
)

// Uniform buffer sizes.
const (
	TransformUniformSize = 80
	FragmentUniformSize  = 24
)

// PipelineContext is what the resources are built from.
type PipelineContext struct {
	// Backend is the device; the resources never create or release it.
	Backend backend.Backend
	// Camera drives the cube transform.
	Camera camera.Camera
	// Standard selects the initial cutout rectangle.
	Standard emulator.VideoStandard
	// BloomRadius is the initial blur radius of the bloom kernel.
	BloomRadius float32
}

// Resources holds every GPU object the compositor uses. Textures are created once; only the
// depth texture and the transform uniforms follow the drawable size.
type Resources interface {
	// Backend returns the device the resources live on.
	Backend() backend.Backend

	// Library returns the shader library.
	Library() shader.Library

	// Catalog returns the upscaler and filter kernels.
	Catalog() kernel.Catalog

	// Bloom returns the kernel that blurs the emulator texture into the blurred texture.
	Bloom() kernel.Kernel

	// Camera returns the camera driving the cube transform.
	Camera() camera.Camera

	// Background returns the background texture.
	Background() backend.Texture

	// Emulator returns the texture the raw screen buffer is uploaded into.
	Emulator() backend.Texture

	// Blurred returns the bloom texture.
	Blurred() backend.Texture

	// Upscaled returns the upscaler output.
	Upscaled() backend.Texture

	// Filtered returns the filter output.
	Filtered() backend.Texture

	// Depth returns the depth texture, sized like the drawable.
	Depth() backend.Texture

	// Vertices returns the vertex buffer.
	Vertices() backend.Buffer

	// BackgroundUniform returns the transform uniform of the background quad.
	BackgroundUniform() backend.Buffer

	// FlatUniform returns the transform uniform of the flat quad.
	FlatUniform() backend.Buffer

	// CubeUniform returns the transform uniform of the cube.
	CubeUniform() backend.Buffer

	// FragmentUniform returns the fragment parameter uniform.
	FragmentUniform() backend.Buffer

	// Pipeline returns the depth-tested, alpha-blended composite pipeline.
	Pipeline() backend.RenderPipeline

	// Size returns the drawable size the depth texture and transforms were built for.
	//
	// Returns:
	//   - common.Extent: the current size
	Size() common.Extent

	// Resize reconfigures the surface, recreates the depth texture and rewrites the three transforms.
	// Same or zero sizes are ignored.
	//
	// Parameters:
	//   - width, height: the new drawable size in pixels
	//
	// Returns:
	//   - bool: true if anything was rebuilt
	//   - error: an error wrapping ErrInitialization if the depth texture or a uniform cannot be written
	Resize(width, height uint32) (bool, error)

	// Rebuilds returns how many times Resize rebuilt the size dependent resources.
	//
	// Returns:
	//   - int: the rebuild count
	Rebuilds() int

	// Cutout returns the texture region the vertex buffer currently maps.
	//
	// Returns:
	//   - common.Rect: the normalized cutout
	Cutout() common.Rect

	// SetCutout rewrites the vertex buffer for a new cutout. Unchanged cutouts are ignored.
	//
	// Parameters:
	//   - r: the normalized cutout
	//
	// Returns:
	//   - error: an error if the vertex buffer cannot be written
	SetCutout(r common.Rect) error

	// WriteCubeTransform uploads the current camera matrix and alpha into the cube uniform.
	//
	// Returns:
	//   - error: an error if the write fails
	WriteCubeTransform() error

	// WriteCubeAlpha overwrites only the alpha of the cube uniform.
	//
	// Parameters:
	//   - alpha: the opacity to draw with
	//
	// Returns:
	//   - error: an error if the write fails
	WriteCubeAlpha(alpha float32) error

	// Release frees every resource created by BuildResources.
	Release()
}

type resources struct {
	mu *sync.Mutex

	b      backend.Backend
	cam    camera.Camera
	lib    shader.Library
	catlog kernel.Catalog
	bloom  kernel.Kernel

	background backend.Texture
	emu        backend.Texture
	blurred    backend.Texture
	upscaled   backend.Texture
	filtered   backend.Texture
	depth      backend.Texture

	vertices  backend.Buffer
	bgUniform backend.Buffer
	flatUnif  backend.Buffer
	cubeUnif  backend.Buffer
	fragUnif  backend.Buffer
	pipeline  backend.RenderPipeline

	cutout   common.Rect
	size     common.Extent
	rebuilds int
	released bool

	// Builder configuration.
	libOptions     []shader.LibraryBuilderOption
	catalogOptions []kernel.CatalogBuilderOption
	backgroundPath string
	backgroundImg  image.Image
}

var _ Resources = &resources{}

// BuildResources creates the pipeline resources in dependency order: shader library, textures,
// kernel catalog, bloom kernel, buffers and the composite pipeline, then sizes them to the surface.
// Anything built before a failure is released again.
//
// Parameters:
//   - ctx: the backend, camera and initial state to build from
//   - options: variadic ResourcesBuilderOption functions
//
// Returns:
//   - Resources: the ready resources
//   - error: an error wrapping ErrInitialization
func BuildResources(ctx PipelineContext, options ...ResourcesBuilderOption) (Resources, error) {
	if ctx.Backend == nil {
		return nil, fmt.Errorf("%w: no backend", ErrInitialization)
	}
	r := &resources{
		mu:  &sync.Mutex{},
		b:   ctx.Backend,
		cam: ctx.Camera,
	}
	if r.cam == nil {
		r.cam = camera.NewCamera()
	}
	for _, opt := range options {
		opt(r)
	}

	if err := r.build(ctx); err != nil {
		r.Release()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	size := r.b.SurfaceSize()
	if _, err := r.Resize(size.Width, size.Height); err != nil {
		r.Release()
		return nil, err
	}
	common.Logger().Info("renderer resources ready",
		"surface", fmt.Sprintf("%dx%d", size.Width, size.Height), "standard", ctx.Standard.String())
	return r, nil
}

func (r *resources) build(ctx PipelineContext) error {
	var err error
	if r.lib, err = shader.NewLibrary(r.libOptions...); err != nil {
		return err
	}

	if err = r.buildTextures(); err != nil {
		return err
	}

	if r.catlog, err = kernel.NewCatalog(r.b, r.lib, r.catalogOptions...); err != nil {
		return err
	}
	r.bloom, err = kernel.New(r.b, r.lib, kernel.Descriptor{
		Name:       shader.GaussFilter,
		Sampler:    backend.SamplerLinear,
		Blur:       true,
		BlurRadius: ctx.BloomRadius,
	}, common.Extent{Width: BlurredTextureSize, Height: BlurredTextureSize})
	if err != nil {
		return err
	}
	r.catlog.AttachPreBlur(r.blurred)

	if err = r.buildBuffers(emulator.GeometryFor(ctx.Standard).Cutout()); err != nil {
		return err
	}

	composite, err := r.lib.Program(shader.Composite)
	if err != nil {
		return err
	}
	r.pipeline, err = r.b.CreateRenderPipeline(backend.RenderPipelineDescriptor{
		Program:      composite,
		VertexStride: VertexStride,
		Attributes: []backend.VertexAttribute{
			{Location: 0, Offset: 0, Format: backend.VertexFloat32x4},
			{Location: 1, Offset: 16, Format: backend.VertexFloat32x2},
		},
		DepthTest:  true,
		AlphaBlend: true,
	})
	return err
}

func (r *resources) buildTextures() error {
	color := func(label string, size uint32, usage backend.TextureUsage) (backend.Texture, error) {
		return r.b.CreateTexture(backend.TextureDescriptor{
			Label:  label,
			Width:  size,
			Height: size,
			Format: backend.FormatRGBA8,
			Usage:  usage,
		})
	}

	var err error
	if r.background, err = color("background", BackgroundSize, backend.UsageSampled|backend.UsageCopyDst); err != nil {
		return err
	}
	if r.emu, err = color("emulator", EmulatorTextureSize, backend.UsageSampled|backend.UsageCopyDst); err != nil {
		return err
	}
	if r.blurred, err = color("blurred", BlurredTextureSize, backend.UsageSampled|backend.UsageStorage); err != nil {
		return err
	}
	if r.upscaled, err = color("upscaled", UpscaledTextureSize, backend.UsageSampled|backend.UsageStorage); err != nil {
		return err
	}
	if r.filtered, err = color("filtered", UpscaledTextureSize, backend.UsageSampled|backend.UsageStorage); err != nil {
		return err
	}

	img := r.backgroundImage()
	return r.b.WriteTexture(r.background, img.Pix, uint32(img.Stride), BackgroundSize, BackgroundSize)
}

// backgroundImage resolves the configured background, falling back to the gradient.
func (r *resources) backgroundImage() *image.RGBA {
	if r.backgroundImg != nil {
		return scaleBackground(r.backgroundImg, BackgroundSize)
	}
	if r.backgroundPath != "" {
		img, err := LoadBackground(r.backgroundPath, BackgroundSize)
		if err == nil {
			return img
		}
		common.Logger().Warn("background image unusable, using gradient", "error", err)
	}
	return GradientBackground(BackgroundSize)
}

func (r *resources) buildBuffers(cutout common.Rect) error {
	var err error
	if r.vertices, err = r.b.CreateBuffer("Vertices", VertexCount*VertexStride, backend.BufferVertex); err != nil {
		return err
	}
	if err = r.b.WriteBuffer(r.vertices, 0, VertexBytes(cutout)); err != nil {
		return err
	}
	r.cutout = cutout

	if r.bgUniform, err = r.b.CreateBuffer("Background Transform", TransformUniformSize, backend.BufferUniform); err != nil {
		return err
	}
	if r.flatUnif, err = r.b.CreateBuffer("Flat Transform", TransformUniformSize, backend.BufferUniform); err != nil {
		return err
	}
	if r.cubeUnif, err = r.b.CreateBuffer("Cube Transform", TransformUniformSize, backend.BufferUniform); err != nil {
		return err
	}
	r.fragUnif, err = r.b.CreateBuffer("Fragment Params", FragmentUniformSize, backend.BufferUniform)
	return err
}

func (r *resources) Backend() backend.Backend          { return r.b }
func (r *resources) Library() shader.Library           { return r.lib }
func (r *resources) Catalog() kernel.Catalog           { return r.catlog }
func (r *resources) Bloom() kernel.Kernel              { return r.bloom }
func (r *resources) Camera() camera.Camera             { return r.cam }
func (r *resources) Background() backend.Texture       { return r.background }
func (r *resources) Emulator() backend.Texture         { return r.emu }
func (r *resources) Blurred() backend.Texture          { return r.blurred }
func (r *resources) Upscaled() backend.Texture         { return r.upscaled }
func (r *resources) Filtered() backend.Texture         { return r.filtered }
func (r *resources) Vertices() backend.Buffer          { return r.vertices }
func (r *resources) BackgroundUniform() backend.Buffer { return r.bgUniform }
func (r *resources) FlatUniform() backend.Buffer       { return r.flatUnif }
func (r *resources) CubeUniform() backend.Buffer       { return r.cubeUnif }
func (r *resources) FragmentUniform() backend.Buffer   { return r.fragUnif }
func (r *resources) Pipeline() backend.RenderPipeline  { return r.pipeline }

func (r *resources) Depth() backend.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth
}

func (r *resources) Size() common.Extent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *resources) Rebuilds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuilds
}

func (r *resources) Resize(width, height uint32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := common.Extent{Width: width, Height: height}
	if size.Empty() || size == r.size {
		return false, nil
	}

	r.b.ConfigureSurface(width, height)
	depth, err := r.b.CreateTexture(backend.TextureDescriptor{
		Label:  "depth",
		Width:  width,
		Height: height,
		Format: backend.FormatDepth,
		Usage:  backend.UsageRenderTarget,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if r.depth != nil {
		r.depth.Release()
	}
	r.depth = depth
	r.size = size

	r.cam.SetAspect(float32(width) / float32(height))
	if err := r.writeTransforms(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	r.rebuilds++
	common.Logger().Debug("renderer resized", "width", width, "height", height, "rebuilds", r.rebuilds)
	return true, nil
}

// writeTransforms writes the background, flat and cube uniforms. Caller must hold the mutex.
func (r *resources) writeTransforms() error {
	bg := camera.GPUTransformUniform{MVP: r.cam.ProjectionMatrix(), Alpha: 1}
	if err := r.b.WriteBuffer(r.bgUniform, 0, bg.Marshal()); err != nil {
		return err
	}

	flat := camera.GPUTransformUniform{Alpha: 1}
	common.Identity(flat.MVP[:])
	if err := r.b.WriteBuffer(r.flatUnif, 0, flat.Marshal()); err != nil {
		return err
	}

	cube := camera.Uniform(r.cam)
	return r.b.WriteBuffer(r.cubeUnif, 0, cube.Marshal())
}

func (r *resources) Cutout() common.Rect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cutout
}

func (r *resources) SetCutout(cutout common.Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cutout == r.cutout {
		return nil
	}
	if err := r.b.WriteBuffer(r.vertices, 0, VertexBytes(cutout)); err != nil {
		return fmt.Errorf("failed to rewrite vertices: %w", err)
	}
	r.cutout = cutout
	return nil
}

func (r *resources) WriteCubeTransform() error {
	cube := camera.Uniform(r.cam)
	return r.b.WriteBuffer(r.cubeUnif, 0, cube.Marshal())
}

func (r *resources) WriteCubeAlpha(alpha float32) error {
	u := camera.GPUTransformUniform{Alpha: alpha}
	return r.b.WriteBuffer(r.cubeUnif, 64, u.Marshal()[64:68])
}

func (r *resources) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true

	if r.catlog != nil {
		r.catlog.Release()
	}
	if r.bloom != nil {
		r.bloom.Release()
	}
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	for _, tex := range []backend.Texture{r.background, r.emu, r.blurred, r.upscaled, r.filtered, r.depth} {
		if tex != nil {
			tex.Release()
		}
	}
	for _, buf := range []backend.Buffer{r.vertices, r.bgUniform, r.flatUnif, r.cubeUnif, r.fragUnif} {
		if buf != nil {
			buf.Release()
		}
	}
}

package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
	"github.com/gogpu/naga"
)

// Op identifies a recorded command.
type Op int

const (
	// OpDispatch is a compute dispatch.
	OpDispatch Op = iota

	// OpBeginRenderPass starts the drawable render pass.
	OpBeginRenderPass

	// OpDraw is a draw call.
	OpDraw

	// OpEndRenderPass ends the render pass.
	OpEndRenderPass
)

// Command is one recorded operation. Resources are identified by their labels.
type Command struct {
	Op Op
	// Program is the compute program or render pipeline name.
	Program    string
	Source     string
	Target     string
	Weights    string
	PreBlur    string
	Image      string
	Bloom      string
	Depth      string
	Sampler    SamplerKind
	Workgroups [3]uint32
	First      uint32
	Count      uint32
	// Transform is a copy of the transform buffer contents when the draw was encoded.
	Transform []byte
	// Params is a copy of the params buffer contents when the dispatch was encoded.
	Params []byte
}

// FrameRecord is the command stream of one finished frame.
type FrameRecord struct {
	Commands  []Command
	Presented bool
}

// Draws returns the draw commands of the frame in encoding order.
func (r FrameRecord) Draws() []Command {
	var draws []Command
	for _, c := range r.Commands {
		if c.Op == OpDraw {
			draws = append(draws, c)
		}
	}
	return draws
}

// Dispatches returns the compute dispatches of the frame in encoding order.
func (r FrameRecord) Dispatches() []Command {
	var dispatches []Command
	for _, c := range r.Commands {
		if c.Op == OpDispatch {
			dispatches = append(dispatches, c)
		}
	}
	return dispatches
}

// Headless is a Backend that records every operation instead of talking to a GPU.
// It drives the test suite and the --headless command line mode.
type Headless interface {
	Backend

	// SetDrawableAvailable controls whether AcquireFrame succeeds.
	//
	// Parameters:
	//   - ok: false makes AcquireFrame return ErrNoDrawable
	SetDrawableAvailable(ok bool)

	// Frames returns the finished frames, presented or discarded, in order.
	// With WithFrameHistory only the most recent ones are kept.
	//
	// Returns:
	//   - []FrameRecord: the recorded frames
	Frames() []FrameRecord

	// PendingCompletions returns the number of completion callbacks waiting for Poll.
	//
	// Returns:
	//   - int: callbacks not yet run
	PendingCompletions() int

	// BufferContents returns a copy of a buffer's current bytes.
	//
	// Parameters:
	//   - buf: a buffer created by this backend
	//
	// Returns:
	//   - []byte: the buffer contents
	BufferContents(buf Buffer) []byte

	// TextureContents returns a copy of a texture's current bytes, rows packed without padding.
	//
	// Parameters:
	//   - tex: a texture created by this backend
	//
	// Returns:
	//   - []byte: the texture contents
	TextureContents(tex Texture) []byte

	// LiveTextures returns how many textures have been created and not released.
	//
	// Returns:
	//   - int: live texture count
	LiveTextures() int

	// Programs returns the names of every compute program compiled so far, sorted.
	//
	// Returns:
	//   - []string: program names
	Programs() []string
}

type headlessTexture struct {
	b        *headlessBackend
	desc     TextureDescriptor
	data     []byte
	released bool
}

func (t *headlessTexture) Descriptor() TextureDescriptor { return t.desc }

func (t *headlessTexture) Release() {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.b.liveTextures--
}

type headlessBuffer struct {
	label    string
	data     []byte
	usage    BufferUsage
	released bool
}

func (b *headlessBuffer) Label() string { return b.label }
func (b *headlessBuffer) Size() uint64  { return uint64(len(b.data)) }
func (b *headlessBuffer) Release()      { b.released = true }

type headlessProgram struct {
	desc ComputeProgramDescriptor
}

func (p *headlessProgram) Name() string                         { return p.desc.Program.Name }
func (p *headlessProgram) Descriptor() ComputeProgramDescriptor { return p.desc }
func (p *headlessProgram) Release()                             {}

type headlessPipeline struct {
	name   string
	stride uint64
}

func (p *headlessPipeline) Name() string { return p.name }
func (p *headlessPipeline) Release()     {}

type headlessBackend struct {
	mu *sync.Mutex

	size              common.Extent
	drawableAvailable bool
	deferCompletion   bool
	validate          bool
	failing           map[string]bool
	history           int

	frame        *headlessFrame
	frames       []FrameRecord
	pending      []func()
	liveTextures int
	programs     []string
	released     bool
}

var _ Headless = &headlessBackend{}

// NewHeadless creates a recording backend. By default the surface is 1024x768, a drawable is always
// available and completion callbacks run immediately on Present.
//
// Parameters:
//   - options: variadic HeadlessBuilderOption functions
//
// Returns:
//   - Headless: the recording backend
func NewHeadless(options ...HeadlessBuilderOption) Headless {
	b := &headlessBackend{
		mu:                &sync.Mutex{},
		size:              common.Extent{Width: 1024, Height: 768},
		drawableAvailable: true,
		failing:           make(map[string]bool),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *headlessBackend) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %s has zero size", desc.Label)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.liveTextures++
	return &headlessTexture{
		b:    b,
		desc: desc,
		data: make([]byte, int(desc.Width)*int(desc.Height)*int(desc.Format.BytesPerPixel())),
	}, nil
}

func (b *headlessBackend) WriteTexture(tex Texture, data []byte, bytesPerRow, width, height uint32) error {
	t := tex.(*headlessTexture)
	if t.desc.Usage&UsageCopyDst == 0 {
		return fmt.Errorf("texture %s is not a copy destination", t.desc.Label)
	}
	if err := checkWrite(t.desc, len(data), bytesPerRow, width, height); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bpp := t.desc.Format.BytesPerPixel()
	rowLen := width * bpp
	for y := uint32(0); y < height; y++ {
		dst := y * t.desc.Width * bpp
		src := y * bytesPerRow
		copy(t.data[dst:dst+rowLen], data[src:src+rowLen])
	}
	return nil
}

func (b *headlessBackend) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer %s has zero size", label)
	}
	return &headlessBuffer{label: label, data: make([]byte, size), usage: usage}, nil
}

func (b *headlessBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	hb := buf.(*headlessBuffer)
	if offset+uint64(len(data)) > uint64(len(hb.data)) {
		return fmt.Errorf("write of %d bytes at %d overruns buffer %s of %d bytes", len(data), offset, hb.label, len(hb.data))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(hb.data[offset:], data)
	return nil
}

func (b *headlessBackend) CreateComputeProgram(desc ComputeProgramDescriptor) (ComputeProgram, error) {
	if _, err := validateComputeProgram(desc); err != nil {
		return nil, err
	}
	if err := b.compile(desc.Program); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.programs = append(b.programs, desc.Program.Name)
	b.mu.Unlock()
	return &headlessProgram{desc: desc}, nil
}

func (b *headlessBackend) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	if _, ok := desc.Program.EntryPoint(shader.StageVertex); !ok {
		return nil, fmt.Errorf("%w: %s has no vertex entry point", ErrBindingMismatch, desc.Program.Name)
	}
	if _, ok := desc.Program.EntryPoint(shader.StageFragment); !ok {
		return nil, fmt.Errorf("%w: %s has no fragment entry point", ErrBindingMismatch, desc.Program.Name)
	}
	if desc.VertexStride == 0 || len(desc.Attributes) == 0 {
		return nil, fmt.Errorf("render pipeline %s has no vertex layout", desc.Program.Name)
	}
	if err := b.compile(desc.Program); err != nil {
		return nil, err
	}
	return &headlessPipeline{name: desc.Program.Name, stride: desc.VertexStride}, nil
}

// compile runs the optional WGSL validation outside the backend lock so programs can compile in parallel.
func (b *headlessBackend) compile(p shader.Program) error {
	b.mu.Lock()
	fail, validate := b.failing[p.Name], b.validate
	b.mu.Unlock()
	if fail {
		return fmt.Errorf("failed to compile %s: forced failure", p.Name)
	}
	if validate {
		if _, err := naga.Compile(p.Source); err != nil {
			return fmt.Errorf("failed to compile %s: %w", p.Name, err)
		}
	}
	return nil
}

func (b *headlessBackend) ConfigureSurface(width, height uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = common.Extent{Width: width, Height: height}
}

func (b *headlessBackend) SurfaceSize() common.Extent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *headlessBackend) AcquireFrame() (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame != nil {
		panic("backend: previous frame not presented or discarded")
	}
	if !b.drawableAvailable || b.size.Empty() {
		return nil, ErrNoDrawable
	}
	b.frame = &headlessFrame{b: b}
	return b.frame, nil
}

func (b *headlessBackend) Poll(wait bool) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (b *headlessBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
}

func (b *headlessBackend) SetDrawableAvailable(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drawableAvailable = ok
}

func (b *headlessBackend) Frames() []FrameRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.frames)
}

func (b *headlessBackend) PendingCompletions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *headlessBackend) BufferContents(buf Buffer) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(buf.(*headlessBuffer).data)
}

func (b *headlessBackend) TextureContents(tex Texture) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(tex.(*headlessTexture).data)
}

func (b *headlessBackend) LiveTextures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.liveTextures
}

func (b *headlessBackend) Programs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := slices.Clone(b.programs)
	slices.Sort(names)
	return names
}

type headlessFrame struct {
	b        *headlessBackend
	commands []Command
	inPass   bool
	done     bool
}

var _ Frame = &headlessFrame{}

func (f *headlessFrame) mustBeOpen() {
	if f.done {
		panic("backend: frame already finished")
	}
}

func label(t Texture) string {
	if t == nil {
		return ""
	}
	return t.Descriptor().Label
}

func (f *headlessFrame) Dispatch(d Dispatch) {
	f.mustBeOpen()
	if f.inPass {
		panic("backend: dispatch inside render pass")
	}
	checkDispatch(d)
	if d.Target.Descriptor().Usage&UsageStorage == 0 {
		panic("backend: dispatch target " + label(d.Target) + " is not a storage texture")
	}
	cmd := Command{
		Op:         OpDispatch,
		Program:    d.Program.Name(),
		Source:     label(d.Source),
		Target:     label(d.Target),
		Weights:    label(d.Weights),
		PreBlur:    label(d.PreBlur),
		Sampler:    d.Sampler,
		Workgroups: d.Workgroups,
	}
	if d.Params != nil {
		cmd.Params = f.b.BufferContents(d.Params)
	}
	f.commands = append(f.commands, cmd)
}

func (f *headlessFrame) BeginRenderPass(depth Texture, clear Color) {
	f.mustBeOpen()
	if f.inPass {
		panic("backend: render pass already open")
	}
	f.inPass = true
	f.commands = append(f.commands, Command{Op: OpBeginRenderPass, Depth: label(depth)})
}

func (f *headlessFrame) Draw(d Draw) {
	f.mustBeOpen()
	if !f.inPass {
		panic("backend: draw outside render pass")
	}
	if d.Pipeline == nil || d.Vertices == nil || d.Transform == nil || d.Fragment == nil || d.Image == nil || d.Bloom == nil {
		panic("backend: draw with missing resource")
	}
	vertices := d.Vertices.Size() / d.Pipeline.(*headlessPipeline).stride
	if uint64(d.First)+uint64(d.Count) > vertices {
		panic(fmt.Sprintf("backend: draw of %d vertices from %d overruns %d", d.Count, d.First, vertices))
	}
	f.commands = append(f.commands, Command{
		Op:        OpDraw,
		Program:   d.Pipeline.Name(),
		Image:     label(d.Image),
		Bloom:     label(d.Bloom),
		Sampler:   d.Sampler,
		First:     d.First,
		Count:     d.Count,
		Transform: f.b.BufferContents(d.Transform),
	})
}

func (f *headlessFrame) EndRenderPass() {
	f.mustBeOpen()
	if !f.inPass {
		panic("backend: no render pass open")
	}
	f.inPass = false
	f.commands = append(f.commands, Command{Op: OpEndRenderPass})
}

func (f *headlessFrame) finish(presented bool) {
	f.done = true
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	f.b.frames = append(f.b.frames, FrameRecord{Commands: f.commands, Presented: presented})
	if h := f.b.history; h > 0 && len(f.b.frames) > h {
		f.b.frames = slices.Delete(f.b.frames, 0, len(f.b.frames)-h)
	}
	f.b.frame = nil
}

func (f *headlessFrame) Present(onComplete func()) {
	f.mustBeOpen()
	if f.inPass {
		panic("backend: present with open render pass")
	}
	f.finish(true)
	if onComplete == nil {
		return
	}
	f.b.mu.Lock()
	deferred := f.b.deferCompletion
	if deferred {
		f.b.pending = append(f.b.pending, onComplete)
	}
	f.b.mu.Unlock()
	if !deferred {
		onComplete()
	}
}

func (f *headlessFrame) Discard() {
	f.mustBeOpen()
	f.finish(false)
}

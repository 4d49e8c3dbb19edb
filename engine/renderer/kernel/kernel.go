// Package kernel implements the compute kernels of the post-processing chain and the catalog that
// holds the selectable upscalers and filters.
package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
)

// WorkgroupSize is the thread group edge length every kernel program is written for.
const WorkgroupSize = 16

// ErrKernelUnavailable is returned when a slot has no usable kernel.
var ErrKernelUnavailable = errors.New("kernel unavailable")

// Descriptor is everything that distinguishes one kernel from another.
type Descriptor struct {
	// Name is the shader program name.
	Name    string
	Sampler backend.SamplerKind
	// Params is the initial parameter record, nil for kernels without one.
	Params ParamRecord
	// PreBlur kernels read a second, pre-blurred texture attached with SetPreBlur.
	PreBlur bool
	// Blur kernels own a Gaussian weight texture built from BlurRadius.
	Blur       bool
	BlurRadius float32
}

// Kernel is a compiled compute program plus the state it binds on every dispatch.
// Scalar parameters may be changed from any goroutine; Apply runs on the rendering goroutine.
type Kernel interface {
	// Name returns the shader program name.
	Name() string

	// Descriptor returns the kernel's current descriptor, including its live parameters.
	//
	// Returns:
	//   - Descriptor: the descriptor
	Descriptor() Descriptor

	// Workgroups returns the dispatch size computed from the target resolution at construction.
	//
	// Returns:
	//   - [3]uint32: workgroup counts per axis
	Workgroups() [3]uint32

	// Apply encodes one dispatch reading source and writing target.
	// A stale blur weight texture is rebuilt first and the parameter record is uploaded.
	//
	// Parameters:
	//   - frame: the command stream to encode into
	//   - source: the texture to read
	//   - target: the storage texture to write
	//
	// Returns:
	//   - error: an error if the weight texture or parameter upload fails; nothing is encoded then
	Apply(frame backend.Frame, source, target backend.Texture) error

	// SetBlurRadius changes the blur radius. The weight texture is rebuilt lazily by Apply.
	// No-op for kernels without blur.
	//
	// Parameters:
	//   - radius: the new radius in texels
	SetBlurRadius(radius float32)

	// SetParams replaces the parameter record. No-op for kernels without one.
	//
	// Parameters:
	//   - p: the new record
	SetParams(p ParamRecord)

	// SetPreBlur attaches the pre-blurred texture read by PreBlur kernels.
	//
	// Parameters:
	//   - tex: the blurred texture
	SetPreBlur(tex backend.Texture)

	// Release frees the program, the parameter buffer and the weight texture.
	Release()
}

type kernel struct {
	mu *sync.Mutex
	b  backend.Backend

	desc       Descriptor
	program    backend.ComputeProgram
	workgroups [3]uint32

	params        backend.Buffer
	weights       backend.Texture
	weightsRadius float32
	preBlur       backend.Texture
}

var _ Kernel = &kernel{}

// New compiles the program named by desc and prepares its parameter buffer.
//
// Parameters:
//   - b: the backend to compile on
//   - lib: the shader library holding the program
//   - desc: the kernel descriptor
//   - target: the resolution of the textures the kernel writes
//
// Returns:
//   - Kernel: the ready kernel
//   - error: an error if the program is missing, fails to compile, or the buffer cannot be created
func New(b backend.Backend, lib shader.Library, desc Descriptor, target common.Extent) (Kernel, error) {
	if target.Empty() {
		return nil, fmt.Errorf("kernel %s: empty target size", desc.Name)
	}
	prog, err := lib.Program(desc.Name)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", desc.Name, err)
	}
	compiled, err := b.CreateComputeProgram(backend.ComputeProgramDescriptor{
		Program: prog,
		Params:  desc.Params != nil,
		Weights: desc.Blur,
		PreBlur: desc.PreBlur,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", desc.Name, err)
	}

	desc.BlurRadius = common.Clamp(desc.BlurRadius, 0, MaxBlurRadius)
	k := &kernel{
		mu:      &sync.Mutex{},
		b:       b,
		desc:    desc,
		program: compiled,
		workgroups: [3]uint32{
			common.DivCeil(target.Width, WorkgroupSize),
			common.DivCeil(target.Height, WorkgroupSize),
			1,
		},
		weightsRadius: -1,
	}
	if desc.Params != nil {
		k.params, err = b.CreateBuffer(desc.Name+" Params", ParamRecordSize, backend.BufferUniform)
		if err != nil {
			compiled.Release()
			return nil, fmt.Errorf("kernel %s: %w", desc.Name, err)
		}
	}
	return k, nil
}

func (k *kernel) Name() string {
	return k.desc.Name
}

func (k *kernel) Descriptor() Descriptor {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.desc
}

func (k *kernel) Workgroups() [3]uint32 {
	return k.workgroups
}

func (k *kernel) SetBlurRadius(radius float32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.desc.Blur {
		k.desc.BlurRadius = common.Clamp(radius, 0, MaxBlurRadius)
	}
}

func (k *kernel) SetParams(p ParamRecord) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.desc.Params != nil && p != nil {
		k.desc.Params = p
	}
}

func (k *kernel) SetPreBlur(tex backend.Texture) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.preBlur = tex
}

func (k *kernel) Apply(frame backend.Frame, source, target backend.Texture) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.desc.Blur && k.weightsRadius != k.desc.BlurRadius {
		if err := k.rebuildWeights(); err != nil {
			return err
		}
	}
	if k.params != nil {
		if err := k.b.WriteBuffer(k.params, 0, k.desc.Params.Marshal()); err != nil {
			return fmt.Errorf("kernel %s: %w", k.desc.Name, err)
		}
	}

	frame.Dispatch(backend.Dispatch{
		Program:    k.program,
		Source:     source,
		Target:     target,
		Sampler:    k.desc.Sampler,
		Params:     k.params,
		Weights:    k.weights,
		PreBlur:    k.preBlur,
		Workgroups: k.workgroups,
	})
	return nil
}

// rebuildWeights replaces the weight texture with one for the current radius. Callers hold k.mu.
func (k *kernel) rebuildWeights() error {
	weights := GaussianWeights(k.desc.BlurRadius)
	data := make([]byte, len(weights)*4)
	for i, w := range weights {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(w))
	}

	n := uint32(len(weights))
	tex, err := k.b.CreateTexture(backend.TextureDescriptor{
		Label:  k.desc.Name + " Weights",
		Width:  n,
		Height: 1,
		Format: backend.FormatR32Float,
		Usage:  backend.UsageSampled | backend.UsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("kernel %s: %w", k.desc.Name, err)
	}
	if err := k.b.WriteTexture(tex, data, n*4, n, 1); err != nil {
		tex.Release()
		return fmt.Errorf("kernel %s: %w", k.desc.Name, err)
	}

	if k.weights != nil {
		k.weights.Release()
	}
	k.weights = tex
	k.weightsRadius = k.desc.BlurRadius
	common.Logger().Debug("blur weights rebuilt", "kernel", k.desc.Name, "radius", k.weightsRadius, "taps", n)
	return nil
}

func (k *kernel) Release() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.weights != nil {
		k.weights.Release()
		k.weights = nil
	}
	if k.params != nil {
		k.params.Release()
		k.params = nil
	}
	k.program.Release()
}

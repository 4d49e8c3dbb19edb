package kernel

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
)

// Upscaler slot indices.
const (
	UpscalerBypass = iota
	UpscalerEPX
	UpscalerXBR
	UpscalerScanline
	NumUpscalers
)

// Filter slot indices.
const (
	FilterBypass = iota
	FilterGauss
	FilterCRT
	FilterScanline
	NumFilters
)

// DefaultTargetSize is the resolution every upscaler and filter writes.
var DefaultTargetSize = common.Extent{Width: 2048, Height: 2048}

// DefaultUpscalers returns the descriptors of the upscaler slots in index order.
//
// Returns:
//   - []Descriptor: one descriptor per upscaler slot
func DefaultUpscalers() []Descriptor {
	return []Descriptor{
		UpscalerBypass:   {Name: shader.BypassUpscaler, Sampler: backend.SamplerNearest},
		UpscalerEPX:      {Name: shader.EPXUpscaler, Sampler: backend.SamplerNearest},
		UpscalerXBR:      {Name: shader.XBRUpscaler, Sampler: backend.SamplerNearest},
		UpscalerScanline: {Name: shader.ScanlineUpscaler, Sampler: backend.SamplerLinear, Params: ScanlineParams{Brightness: 0.55, Weight: 0.11}},
	}
}

// DefaultFilters returns the descriptors of the filter slots in index order.
//
// Returns:
//   - []Descriptor: one descriptor per filter slot
func DefaultFilters() []Descriptor {
	return []Descriptor{
		FilterBypass:   {Name: shader.BypassFilter, Sampler: backend.SamplerNearest},
		FilterGauss:    {Name: shader.GaussFilter, Sampler: backend.SamplerLinear, Blur: true, BlurRadius: 1},
		FilterCRT:      {Name: shader.CRTFilter, Sampler: backend.SamplerLinear, Params: BloomParams{}},
		FilterScanline: {Name: shader.ScanlineFilter, Sampler: backend.SamplerLinear, Params: BloomParams{}, Blur: true, BlurRadius: 1, PreBlur: true},
	}
}

// SlotInfo describes one catalog slot for selection menus.
type SlotInfo struct {
	Index     int
	Name      string
	Available bool
}

// Catalog holds the upscaler and filter kernels. Slots whose program failed to compile stay empty.
type Catalog interface {
	// Upscaler returns the upscaler in slot i, or the bypass upscaler if that slot is empty or out of range.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - Kernel: never nil
	Upscaler(i int) Kernel

	// Filter returns the filter in slot i, or the bypass filter if that slot is empty or out of range.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - Kernel: never nil
	Filter(i int) Kernel

	// CheckUpscaler reports whether slot i holds a usable upscaler.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - error: ErrKernelUnavailable if it does not
	CheckUpscaler(i int) error

	// CheckFilter reports whether slot i holds a usable filter.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - error: ErrKernelUnavailable if it does not
	CheckFilter(i int) error

	// UpscalerSlots lists every upscaler slot with its availability.
	UpscalerSlots() []SlotInfo

	// FilterSlots lists every filter slot with its availability.
	FilterSlots() []SlotInfo

	// AttachPreBlur hands the blurred texture to every kernel that reads one.
	//
	// Parameters:
	//   - tex: the blurred texture
	AttachPreBlur(tex backend.Texture)

	// Release frees every kernel.
	Release()
}

type catalog struct {
	upscalerDescs []Descriptor
	filterDescs   []Descriptor
	workers       int
	target        common.Extent

	upscalers []Kernel
	filters   []Kernel
}

var _ Catalog = &catalog{}

// NewCatalog compiles every upscaler and filter slot in parallel.
// A slot that fails to build is logged and left empty; the bypass slots must build.
//
// Parameters:
//   - b: the backend to compile on
//   - lib: the shader library
//   - options: variadic CatalogBuilderOption functions
//
// Returns:
//   - Catalog: the populated catalog
//   - error: an error if either bypass slot fails to build
func NewCatalog(b backend.Backend, lib shader.Library, options ...CatalogBuilderOption) (Catalog, error) {
	c := &catalog{
		upscalerDescs: DefaultUpscalers(),
		filterDescs:   DefaultFilters(),
		workers:       4,
		target:        DefaultTargetSize,
	}
	for _, opt := range options {
		opt(c)
	}
	c.upscalers = make([]Kernel, len(c.upscalerDescs))
	c.filters = make([]Kernel, len(c.filterDescs))

	pool := common.SharedPool(c.workers)
	var wg sync.WaitGroup
	build := func(id int, desc Descriptor, out *Kernel) {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				k, err := New(b, lib, desc, c.target)
				if err != nil {
					common.Logger().Warn("kernel disabled", "kernel", desc.Name, "error", err)
					return nil, err
				}
				*out = k
				return k, nil
			},
		})
	}
	for i, desc := range c.upscalerDescs {
		build(i, desc, &c.upscalers[i])
	}
	for i, desc := range c.filterDescs {
		build(len(c.upscalerDescs)+i, desc, &c.filters[i])
	}
	wg.Wait()

	if len(c.upscalers) == 0 || c.upscalers[UpscalerBypass] == nil {
		c.Release()
		return nil, fmt.Errorf("bypass upscaler: %w", ErrKernelUnavailable)
	}
	if len(c.filters) == 0 || c.filters[FilterBypass] == nil {
		c.Release()
		return nil, fmt.Errorf("bypass filter: %w", ErrKernelUnavailable)
	}
	common.Logger().Info("kernel catalog ready",
		"upscalers", countAvailable(c.upscalers), "filters", countAvailable(c.filters))
	return c, nil
}

func countAvailable(slots []Kernel) int {
	n := 0
	for _, k := range slots {
		if k != nil {
			n++
		}
	}
	return n
}

func pick(slots []Kernel, i int) Kernel {
	if i >= 0 && i < len(slots) && slots[i] != nil {
		return slots[i]
	}
	return slots[0]
}

func check(slots []Kernel, i int, kind string) error {
	if i < 0 || i >= len(slots) || slots[i] == nil {
		return fmt.Errorf("%s %d: %w", kind, i, ErrKernelUnavailable)
	}
	return nil
}

func slotInfo(descs []Descriptor, slots []Kernel) []SlotInfo {
	infos := make([]SlotInfo, len(descs))
	for i, d := range descs {
		infos[i] = SlotInfo{Index: i, Name: d.Name, Available: slots[i] != nil}
	}
	return infos
}

func (c *catalog) Upscaler(i int) Kernel {
	return pick(c.upscalers, i)
}

func (c *catalog) Filter(i int) Kernel {
	return pick(c.filters, i)
}

func (c *catalog) CheckUpscaler(i int) error {
	return check(c.upscalers, i, "upscaler")
}

func (c *catalog) CheckFilter(i int) error {
	return check(c.filters, i, "filter")
}

func (c *catalog) UpscalerSlots() []SlotInfo {
	return slotInfo(c.upscalerDescs, c.upscalers)
}

func (c *catalog) FilterSlots() []SlotInfo {
	return slotInfo(c.filterDescs, c.filters)
}

func (c *catalog) AttachPreBlur(tex backend.Texture) {
	for _, slots := range [][]Kernel{c.upscalers, c.filters} {
		for _, k := range slots {
			if k != nil && k.Descriptor().PreBlur {
				k.SetPreBlur(tex)
			}
		}
	}
}

func (c *catalog) Release() {
	for _, slots := range [][]Kernel{c.upscalers, c.filters} {
		for i, k := range slots {
			if k != nil {
				k.Release()
				slots[i] = nil
			}
		}
	}
}

package kernel

import "github.com/Carmen-Shannon/c64screen/common"

// CatalogBuilderOption is a functional option for configuring a catalog.
type CatalogBuilderOption func(c *catalog)

// WithWorkers sets how many pooled goroutines compile slots in parallel.
// Values <= 0 are ignored.
//
// Parameters:
//   - n: number of workers
//
// Returns:
//   - CatalogBuilderOption: option function to apply
func WithWorkers(n int) CatalogBuilderOption {
	return func(c *catalog) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithTargetSize sets the resolution the kernels write, which fixes their dispatch size.
//
// Parameters:
//   - size: the target texture size
//
// Returns:
//   - CatalogBuilderOption: option function to apply
func WithTargetSize(size common.Extent) CatalogBuilderOption {
	return func(c *catalog) {
		if !size.Empty() {
			c.target = size
		}
	}
}

// WithUpscalers replaces the upscaler slot descriptors. Slot 0 must be a bypass kernel.
//
// Parameters:
//   - descs: descriptors in slot order
//
// Returns:
//   - CatalogBuilderOption: option function to apply
func WithUpscalers(descs ...Descriptor) CatalogBuilderOption {
	return func(c *catalog) {
		c.upscalerDescs = descs
	}
}

// WithFilters replaces the filter slot descriptors. Slot 0 must be a bypass kernel.
//
// Parameters:
//   - descs: descriptors in slot order
//
// Returns:
//   - CatalogBuilderOption: option function to apply
func WithFilters(descs ...Descriptor) CatalogBuilderOption {
	return func(c *catalog) {
		c.filterDescs = descs
	}
}

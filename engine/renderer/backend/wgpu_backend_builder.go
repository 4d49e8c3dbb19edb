package backend

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUBuilderOption is a functional option for configuring the WebGPU backend.
type WGPUBuilderOption func(b *wgpuBackend)

// WithVSync selects between FIFO presentation (true) and immediate presentation (false).
//
// Parameters:
//   - enabled: whether presentation waits for vertical blank
//
// Returns:
//   - WGPUBuilderOption: a function that applies the vsync option to the backend
func WithVSync(enabled bool) WGPUBuilderOption {
	return func(b *wgpuBackend) {
		if enabled {
			b.presentMode = wgpu.PresentModeFifo
		} else {
			b.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - WGPUBuilderOption: a function that applies the fallback adapter option to the backend
func WithForceFallbackAdapter(force bool) WGPUBuilderOption {
	return func(b *wgpuBackend) {
		b.forceFallbackAdapter = force
	}
}

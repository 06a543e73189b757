package device

import "github.com/cogentcore/webgpu/wgpu"

// WGPUBackendOption is a functional option applied to the WebGPU backend via NewWGPUBackend.
type WGPUBackendOption func(*wgpuBackendImpl)

// WithVSync selects FIFO presentation when true and immediate presentation when false.
//
// Parameters:
//   - vsync: true to wait for vertical blank before presenting
//
// Returns:
//   - WGPUBackendOption: a function that applies the present mode option
func WithVSync(vsync bool) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		if vsync {
			b.presentMode = wgpu.PresentModeFifo
		} else {
			b.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithSamples sets the multisample count of window and canvas passes. WebGPU guarantees 1 and 4.
//
// Parameters:
//   - samples: the sample count
//
// Returns:
//   - WGPUBackendOption: a function that applies the MSAA option
func WithSamples(samples uint32) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.samples = max(samples, 1)
	}
}

// WithAnisotropy sets the anisotropic filtering limit of the linear mipmapped samplers.
//
// Parameters:
//   - level: 1 disables anisotropic filtering; WebGPU caps it at 16
//
// Returns:
//   - WGPUBackendOption: a function that applies the anisotropy option
func WithAnisotropy(level uint16) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.anisotropy = min(max(level, 1), 16)
	}
}

// WithForceSoftwareRenderer forces WebGPU to use a CPU fallback adapter. This requires a software
// Vulkan ICD such as SwiftShader or lavapipe.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - WGPUBackendOption: a function that applies the fallback adapter option
func WithForceSoftwareRenderer(force bool) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.forceFallbackAdapter = force
	}
}

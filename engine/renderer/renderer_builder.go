package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/config"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithConfig replaces every setting with cfg. Options after it override single fields.
//
// Parameters:
//   - cfg: the settings, validated by NewRenderer
//
// Returns:
//   - RendererBuilderOption: a function that applies the config option to a renderer
func WithConfig(cfg config.Config) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg = cfg
	}
}

// WithFramesInFlight sets the number of frame slots the CPU may record ahead of the GPU.
//
// Parameters:
//   - n: the number of frame slots, at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the frames in flight option to a renderer
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.FramesInFlight = n
	}
}

// WithShadowMapSize sets the resolution of every shadow cascade.
//
// Parameters:
//   - size: the map size in texels, a power of two
//
// Returns:
//   - RendererBuilderOption: a function that applies the shadow map size option to a renderer
func WithShadowMapSize(size uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.ShadowMapSize = size
	}
}

// WithSplitCoef sets the blend between logarithmic (1) and uniform (0) cascade splits.
//
// Parameters:
//   - coef: the split coefficient, clamped to [0, 1]
//
// Returns:
//   - RendererBuilderOption: a function that applies the split coefficient option to a renderer
func WithSplitCoef(coef float32) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.ShadowSplitCoef = coef
	}
}

// WithShadowPCF sets the shadow filter mode.
//
// Parameters:
//   - pcf: config.PCFDisabled, config.PCFX4 or config.PCFX16
//
// Returns:
//   - RendererBuilderOption: a function that applies the shadow filter option to a renderer
func WithShadowPCF(pcf config.ShadowPCF) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.ShadowPCF = pcf
	}
}

// WithFenceTimeout bounds how long a frame waits for its slot. Zero waits forever.
//
// Parameters:
//   - timeout: the fence wait limit
//
// Returns:
//   - RendererBuilderOption: a function that applies the fence timeout option to a renderer
func WithFenceTimeout(timeout time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.FenceTimeout = config.Duration(timeout)
	}
}

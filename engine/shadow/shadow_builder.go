package shadow

// RendererBuilderOption is a functional option for configuring a shadow Renderer.
type RendererBuilderOption func(*rendererImpl)

// WithMapSize sets the resolution of every cascade map. It must be a power of two.
//
// Parameters:
//   - size: the width and height in texels
//
// Returns:
//   - RendererBuilderOption: a function that applies the map size
func WithMapSize(size uint32) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.mapSize = size
	}
}

// WithSplitCoef sets the initial split coefficient, clamped to [0, 1].
//
// Parameters:
//   - coef: 1 for logarithmic spacing, 0 for uniform spacing
//
// Returns:
//   - RendererBuilderOption: a function that applies the coefficient
func WithSplitCoef(coef float32) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.splitCoef = min(max(coef, 0), 1)
	}
}

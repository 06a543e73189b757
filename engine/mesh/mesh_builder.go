package mesh

// MeshBuilderOption is a functional option for configuring a Mesh via New.
type MeshBuilderOption func(*meshImpl)

// WithLabel is an option builder that sets the debug label of the Mesh and its buffers.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - MeshBuilderOption: a function that applies the label option to a mesh
func WithLabel(label string) MeshBuilderOption {
	return func(m *meshImpl) {
		m.label = label
	}
}

// WithStreaming is an option builder that makes Update write into the existing buffers while
// they are large enough instead of replacing them.
// A streaming mesh must only be drawn by the frame slot that updates it, since that slot's
// previous submission is known to be complete when the frame begins.
//
// Returns:
//   - MeshBuilderOption: a function that applies the streaming option to a mesh
func WithStreaming() MeshBuilderOption {
	return func(m *meshImpl) {
		m.streaming = true
	}
}

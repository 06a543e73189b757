package shader

import "github.com/Carmen-Shannon/oxy-forward/engine/device"

// ShaderBuilderOption is a functional option for configuring a Shader.
type ShaderBuilderOption func(*shader)

// WithLabel sets the debug label of the shader and its pipeline.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - ShaderBuilderOption: a function that applies the label
func WithLabel(label string) ShaderBuilderOption {
	return func(s *shader) {
		s.label = label
	}
}

// WithTopology sets the primitive topology. Defaults to triangles.
//
// Parameters:
//   - topology: the primitive assembly mode
//
// Returns:
//   - ShaderBuilderOption: a function that applies the topology
func WithTopology(topology device.Topology) ShaderBuilderOption {
	return func(s *shader) {
		s.spec.Topology = topology
	}
}

// WithCullMode sets the face culling mode. Defaults to back-face culling.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - ShaderBuilderOption: a function that applies the cull mode
func WithCullMode(mode device.CullMode) ShaderBuilderOption {
	return func(s *shader) {
		s.spec.CullMode = mode
	}
}

// WithDepth sets the depth test and whether depth is written. Defaults to DepthLess with writes.
//
// Parameters:
//   - compare: the depth comparison
//   - write: whether passing fragments write depth
//
// Returns:
//   - ShaderBuilderOption: a function that applies the depth state
func WithDepth(compare device.DepthCompare, write bool) ShaderBuilderOption {
	return func(s *shader) {
		s.spec.DepthCompare = compare
		s.spec.DepthWrite = write
	}
}

// WithBlend enables alpha blending.
//
// Returns:
//   - ShaderBuilderOption: a function that enables blending
func WithBlend() ShaderBuilderOption {
	return func(s *shader) {
		s.spec.Blend = true
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias.
//
// Parameters:
//   - constant: the constant bias in depth units
//   - slope: the slope-scaled bias factor
//
// Returns:
//   - ShaderBuilderOption: a function that applies the bias
func WithDepthBias(constant int32, slope float32) ShaderBuilderOption {
	return func(s *shader) {
		s.spec.DepthBias = constant
		s.spec.DepthBiasSlopeScale = slope
	}
}

// WithEntryPoints overrides the vertex and fragment entry points. Defaults to vs_main and fs_main.
//
// Parameters:
//   - vertex: the vertex entry point
//   - fragment: the fragment entry point, empty for a depth-only shader
//
// Returns:
//   - ShaderBuilderOption: a function that applies the entry points
func WithEntryPoints(vertex, fragment string) ShaderBuilderOption {
	return func(s *shader) {
		s.spec.VertexEntry = vertex
		s.spec.FragmentEntry = fragment
	}
}

// WithDepthOnly drops the fragment stage. The shader then renders shadow cascades only.
//
// Returns:
//   - ShaderBuilderOption: a function that removes the fragment entry point
func WithDepthOnly() ShaderBuilderOption {
	return func(s *shader) {
		s.spec.FragmentEntry = ""
	}
}

// WithSamples overrides the multisample count. Defaults to the backend surface sample count.
//
// Parameters:
//   - samples: the sample count
//
// Returns:
//   - ShaderBuilderOption: a function that applies the sample count
func WithSamples(samples uint32) ShaderBuilderOption {
	return func(s *shader) {
		s.spec.Samples = samples
	}
}

package material

import "github.com/Carmen-Shannon/oxy-forward/common"

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*materialImpl)

// WithLabel is an option builder that sets the debug label of the material.
//
// Parameters:
//   - label: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the label option to a material
func WithLabel(label string) MaterialBuilderOption {
	return func(m *materialImpl) {
		m.label = label
	}
}

// WithParams is an option builder that sets every shader-visible property at once.
//
// Parameters:
//   - p: the params
//
// Returns:
//   - MaterialBuilderOption: a function that applies the params option to a material
func WithParams(p Params) MaterialBuilderOption {
	return func(m *materialImpl) {
		m.params = p
	}
}

// WithAlbedoColor is an option builder that sets the albedo multiplier of the material.
//
// Parameters:
//   - color: the albedo color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the albedo option to a material
func WithAlbedoColor(color common.Color) MaterialBuilderOption {
	return func(m *materialImpl) {
		m.params.Albedo = color
	}
}

// WithSpecular is an option builder that sets the specular strength and exponent.
//
// Parameters:
//   - strength: the specular strength (0 disables highlights)
//   - shininess: the specular exponent
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular option to a material
func WithSpecular(strength, shininess float32) MaterialBuilderOption {
	return func(m *materialImpl) {
		m.params.Specular = strength
		m.params.Shininess = shininess
	}
}

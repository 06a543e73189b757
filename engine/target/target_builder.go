package target

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
)

// TargetBuilderOption is a functional option for configuring a Target.
// Options apply after the defaults, again on every Reset.
type TargetBuilderOption func(*targetImpl)

// WithClearColor sets the initial clear color.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - TargetBuilderOption: a function that applies the clear color
func WithClearColor(c common.Color) TargetBuilderOption {
	return func(t *targetImpl) {
		t.clearColor = c
	}
}

// WithSkybox enables the skybox.
//
// Returns:
//   - TargetBuilderOption: a function that enables the skybox
func WithSkybox() TargetBuilderOption {
	return func(t *targetImpl) {
		t.skybox = true
	}
}

// WithLights replaces every light slot.
//
// Parameters:
//   - lights: the light slots, nil entries allowed
//
// Returns:
//   - TargetBuilderOption: a function that applies the lights
func WithLights(lights [light.MaxLights]light.Light) TargetBuilderOption {
	return func(t *targetImpl) {
		t.lights = lights
	}
}

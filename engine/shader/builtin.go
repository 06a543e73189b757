package shader

import (
	"embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
)

//go:embed assets/phong.wgsl assets/shadow.wgsl assets/skybox.wgsl assets/shape.wgsl assets/text.wgsl assets/line.wgsl
var builtinAssets embed.FS

// Builtin names one of the shaders shipped with the engine.
type Builtin int

const (
	// BuiltinPhong is the default lit, shadow-receiving forward shader.
	BuiltinPhong Builtin = iota
	// BuiltinShadow is the depth-only shader of the shadow cascades.
	BuiltinShadow
	// BuiltinSkybox draws the sky cube behind everything else.
	BuiltinSkybox
	// BuiltinShape is the unlit, blended shader of 2D shapes.
	BuiltinShape
	// BuiltinText draws glyphs from a font atlas.
	BuiltinText
	// BuiltinLine draws line lists with per-vertex color.
	BuiltinLine
)

func (k Builtin) String() string {
	switch k {
	case BuiltinPhong:
		return "phong"
	case BuiltinShadow:
		return "shadow"
	case BuiltinSkybox:
		return "skybox"
	case BuiltinShape:
		return "shape"
	case BuiltinText:
		return "text"
	case BuiltinLine:
		return "line"
	default:
		return "unknown"
	}
}

// options returns the pipeline state each builtin is compiled with.
func (k Builtin) options() []ShaderBuilderOption {
	switch k {
	case BuiltinShadow:
		return []ShaderBuilderOption{WithDepthOnly(), WithDepthBias(2, 2.0)}
	case BuiltinSkybox:
		return []ShaderBuilderOption{WithCullMode(device.CullNone), WithDepth(device.DepthLessEqual, false)}
	case BuiltinShape, BuiltinText:
		return []ShaderBuilderOption{WithCullMode(device.CullNone), WithDepth(device.DepthLessEqual, true), WithBlend()}
	case BuiltinLine:
		return []ShaderBuilderOption{WithTopology(device.TopologyLines), WithCullMode(device.CullNone), WithBlend()}
	default:
		return nil
	}
}

// BuiltinSource returns the annotated WGSL source of a builtin shader.
func BuiltinSource(k Builtin) (string, error) {
	src, err := builtinAssets.ReadFile("assets/" + k.String() + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("unknown builtin shader %d: %w", int(k), err)
	}
	return string(src), nil
}

// NewBuiltin compiles a builtin shader.
//
// Parameters:
//   - b: the backend the pipeline is created on
//   - k: the builtin to compile
//
// Returns:
//   - Shader: the compiled shader
//   - error: an error if compilation fails
func NewBuiltin(b device.Backend, k Builtin) (Shader, error) {
	src, err := BuiltinSource(k)
	if err != nil {
		return nil, err
	}
	return New(b, src, append([]ShaderBuilderOption{WithLabel(k.String())}, k.options()...)...)
}

package target

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/font"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/Carmen-Shannon/oxy-forward/engine/shader"
)

// Style is the transform and drawing state applied to every order recorded while it is the
// top of the style stack.
type Style struct {
	Transform common.Transform

	// Shader and Material override the builtin phong shader and white material when set.
	Shader   resource.Handle[shader.Shader]
	Material resource.Handle[material.Material]
	Tint     common.Color

	TextureFilter  common.TextureFilter
	TextureWrap    common.TextureWrap
	TextureMipmaps bool
	CastShadows    bool

	LineColor  common.Color
	ShapeColor common.Color
	TextColor  common.Color
	FontSize   float32
	Font       font.Font
}

// DefaultStyle returns the style a Target starts with.
func DefaultStyle() Style {
	return Style{
		Transform:      common.IdentityTransform(),
		Tint:           common.White,
		TextureFilter:  common.FilterLinear,
		TextureWrap:    common.WrapRepeat,
		TextureMipmaps: true,
		CastShadows:    true,
		LineColor:      common.Black,
		ShapeColor:     common.Black,
		TextColor:      common.Black,
		FontSize:       24,
	}
}

// SamplerIndex returns the position of the style's sampler in common.SamplerTable.
func (s Style) SamplerIndex() uint32 {
	return common.SamplerIndex(s.TextureFilter, s.TextureWrap, s.TextureMipmaps)
}

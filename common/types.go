// Package common contains the plain value types and math helpers shared by every engine package.
// They are not interface-wrapped structs, just plain structs that express commonly used data-types.
package common

// TextureFilter selects the texel filtering used when sampling a texture.
type TextureFilter int

const (
	FilterLinear TextureFilter = iota
	FilterNearest
)

// TextureWrap selects how texture coordinates outside [0, 1] are resolved.
type TextureWrap int

const (
	WrapRepeat TextureWrap = iota
	WrapClampBorder
	WrapClampEdge
)

// SamplerCount is the number of distinct sampler combinations exposed to shaders.
const SamplerCount = 12

// SamplerStagingData describes one entry of the engine-wide sampler table before it is
// created on the GPU.
type SamplerStagingData struct {
	// Filter applies to magnification, minification and (when Mipmaps is set) mip selection.
	Filter TextureFilter
	// Wrap applies to all three texture axes.
	Wrap TextureWrap
	// Mipmaps enables sampling across mip levels.
	Mipmaps bool
}

// Anisotropy returns the anisotropic filtering level of the sampler under limit. Only linear
// mipmapped samplers filter anisotropically; the rest use 1.
func (s SamplerStagingData) Anisotropy(limit uint16) uint16 {
	if s.Filter != FilterLinear || !s.Mipmaps || limit < 1 {
		return 1
	}
	return limit
}

// SamplerTable lists the sampler combinations in sampler-index order. The index of an entry
// is the value pushed per draw as sampler_index.
func SamplerTable() [SamplerCount]SamplerStagingData {
	var table [SamplerCount]SamplerStagingData
	i := 0
	for _, f := range []TextureFilter{FilterLinear, FilterNearest} {
		for _, w := range []TextureWrap{WrapRepeat, WrapClampBorder, WrapClampEdge} {
			for _, mips := range []bool{true, false} {
				table[i] = SamplerStagingData{Filter: f, Wrap: w, Mipmaps: mips}
				i++
			}
		}
	}
	return table
}

// SamplerIndex maps a filter/wrap/mipmap combination to its position in SamplerTable.
func SamplerIndex(filter TextureFilter, wrap TextureWrap, mipmaps bool) uint32 {
	index := uint32(filter)*6 + uint32(wrap)*2
	if !mipmaps {
		index++
	}
	return index
}

// TextureStagingData holds RGBA pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

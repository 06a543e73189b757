// Package font rasterizes bitmap fonts into a glyph atlas. Glyph metrics are expressed in
// units of the line height so text can be scaled by the font size at draw time.
package font

import (
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/go-gl/mathgl/mgl32"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// atlasColumns is the number of glyph cells per atlas row.
const atlasColumns = 16

// Glyph locates one rune in the atlas.
type Glyph struct {
	// UVMin and UVMax are the atlas texture coordinates of the glyph cell.
	UVMin, UVMax mgl32.Vec2
	// Size is the quad size in line-height units.
	Size mgl32.Vec2
	// Bearing offsets the quad from the pen position, in line-height units.
	Bearing mgl32.Vec2
	// Advance moves the pen after the glyph, in line-height units.
	Advance float32
}

// fontImpl is the implementation of the Font interface.
type fontImpl struct {
	name   string
	atlas  common.TextureStagingData
	glyphs map[rune]Glyph
}

// Font is a rasterized glyph atlas with per-rune metrics.
type Font interface {
	// Name returns the name the font was created with.
	Name() string

	// Atlas returns the RGBA atlas pixels. Glyph coverage is stored in alpha.
	Atlas() common.TextureStagingData

	// Glyph looks up the metrics of r.
	//
	// Parameters:
	//   - r: the rune to look up
	//
	// Returns:
	//   - Glyph: the glyph metrics
	//   - bool: false if the rune is not in the atlas
	Glyph(r rune) (Glyph, bool)
}

var _ Font = &fontImpl{}

var (
	builtinOnce sync.Once
	builtin     Font
	builtinErr  error
)

// Builtin returns the engine default font, the 7x13 fixed bitmap face. It is rasterized once.
//
// Returns:
//   - Font: the shared default font
func Builtin() Font {
	builtinOnce.Do(func() {
		builtin, builtinErr = New("basic", basicfont.Face7x13)
	})
	if builtinErr != nil {
		panic("font: builtin face failed to rasterize: " + builtinErr.Error())
	}
	return builtin
}

// New rasterizes the printable ASCII range of face into an atlas.
//
// Parameters:
//   - name: the font name
//   - face: the source face; it is only used during construction
//   - options: functional options such as WithRunes
//
// Returns:
//   - Font: the rasterized font
//   - error: an error if the face has no usable metrics or glyphs
func New(name string, face xfont.Face, options ...FontBuilderOption) (Font, error) {
	cfg := fontConfig{low: ' ', high: '~'}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.high < cfg.low {
		return nil, fmt.Errorf("font %s: empty rune range %q..%q", name, cfg.low, cfg.high)
	}

	metrics := face.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()
	lineHeight := ascent + descent
	if lineHeight <= 0 {
		return nil, fmt.Errorf("font %s: face has no line height", name)
	}

	cellWidth := 0
	for r := cfg.low; r <= cfg.high; r++ {
		if adv, ok := face.GlyphAdvance(r); ok {
			cellWidth = max(cellWidth, adv.Ceil())
		}
	}
	if cellWidth == 0 {
		return nil, fmt.Errorf("font %s: no glyphs in range %q..%q", name, cfg.low, cfg.high)
	}

	count := int(cfg.high-cfg.low) + 1
	rows := (count + atlasColumns - 1) / atlasColumns
	width, height := atlasColumns*cellWidth, rows*lineHeight
	atlas := image.NewRGBA(image.Rect(0, 0, width, height))
	drawer := &xfont.Drawer{Dst: atlas, Src: image.White, Face: face}

	f := &fontImpl{name: name, glyphs: make(map[rune]Glyph, count)}
	lh := float32(lineHeight)
	for i := range count {
		r := cfg.low + rune(i)
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		x, y := (i%atlasColumns)*cellWidth, (i/atlasColumns)*lineHeight
		drawer.Dot = fixed.P(x, y+ascent)
		drawer.DrawString(string(r))

		f.glyphs[r] = Glyph{
			UVMin:   mgl32.Vec2{float32(x) / float32(width), float32(y) / float32(height)},
			UVMax:   mgl32.Vec2{float32(x+cellWidth) / float32(width), float32(y+lineHeight) / float32(height)},
			Size:    mgl32.Vec2{float32(cellWidth) / lh, 1},
			Bearing: mgl32.Vec2{0, -float32(descent) / lh},
			Advance: float32(adv.Ceil()) / lh,
		}
	}
	f.atlas = material.FromImage(atlas)
	return f, nil
}

func (f *fontImpl) Name() string {
	return f.name
}

func (f *fontImpl) Atlas() common.TextureStagingData {
	return f.atlas
}

func (f *fontImpl) Glyph(r rune) (Glyph, bool) {
	g, ok := f.glyphs[r]
	return g, ok
}

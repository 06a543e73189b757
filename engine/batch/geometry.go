package batch

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/font"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
	"github.com/go-gl/mathgl/mgl32"
)

// spaceAdvance is how far a space moves the pen, in line heights.
const spaceAdvance float32 = 1.0 / 3.0

// fallbackRune replaces runes the font has no glyph for.
const fallbackRune = '?'

var faceNormal = mgl32.Vec3{0, 0, 1}

// ShapeGeometry triangulates every shape order as a fan around its first point.
//
// Parameters:
//   - g: the destination, reset first
//   - orders: the shape orders in world space
func ShapeGeometry(g *mesh.Geometry, orders []target.ShapeOrder) {
	g.Reset()
	for _, o := range orders {
		base := uint32(len(g.Vertices))
		for _, p := range o.Points {
			g.Vertices = append(g.Vertices, mesh.Vertex{Position: p, Normal: faceNormal, Color: o.Color})
		}
		for i := 1; i+1 < len(o.Points); i++ {
			g.Indices = append(g.Indices, base, base+uint32(i), base+uint32(i+1))
		}
	}
}

// LineGeometry writes one indexed segment per line order.
//
// Parameters:
//   - g: the destination, reset first
//   - orders: the line orders in world space
func LineGeometry(g *mesh.Geometry, orders []target.LineOrder) {
	g.Reset()
	for _, o := range orders {
		base := uint32(len(g.Vertices))
		g.Vertices = append(g.Vertices,
			mesh.Vertex{Position: o.From, Color: o.Color},
			mesh.Vertex{Position: o.To, Color: o.Color},
		)
		g.Indices = append(g.Indices, base, base+1)
	}
}

// TextGeometry lays out every text order drawn with f as one quad per glyph. Positions are
// computed in line-height units and then moved to world space by the order's transform, so a
// space advances a third of the font size and a newline moves down one font size.
//
// Parameters:
//   - g: the destination, reset first
//   - f: the font whose orders are laid out; orders of other fonts are skipped
//   - orders: the text orders
func TextGeometry(g *mesh.Geometry, f font.Font, orders []target.TextOrder) {
	g.Reset()
	for _, o := range orders {
		if o.Font != f {
			continue
		}
		var x, y float32
		for _, r := range o.Text {
			switch r {
			case ' ':
				x += spaceAdvance
				continue
			case '\n':
				x = 0
				y--
				continue
			}
			glyph, ok := f.Glyph(r)
			if !ok {
				if glyph, ok = f.Glyph(fallbackRune); !ok {
					continue
				}
			}
			glyphQuad(g, o, glyph, mgl32.Vec2{x + glyph.Bearing.X(), y + glyph.Bearing.Y()})
			x += glyph.Advance
		}
	}
}

// glyphQuad appends one textured quad with its lower-left corner at origin. Atlas rows grow
// downward, so the quad's top edge samples UVMin.Y.
func glyphQuad(g *mesh.Geometry, o target.TextOrder, glyph font.Glyph, origin mgl32.Vec2) {
	base := uint32(len(g.Vertices))
	corners := [4]struct {
		pos mgl32.Vec2
		uv  mgl32.Vec2
	}{
		{origin, mgl32.Vec2{glyph.UVMin.X(), glyph.UVMax.Y()}},
		{origin.Add(mgl32.Vec2{glyph.Size.X(), 0}), glyph.UVMax},
		{origin.Add(glyph.Size), mgl32.Vec2{glyph.UVMax.X(), glyph.UVMin.Y()}},
		{origin.Add(mgl32.Vec2{0, glyph.Size.Y()}), glyph.UVMin},
	}
	normal := o.LocalToWorld.Mul4x1(faceNormal.Vec4(0)).Vec3()
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}
	for _, c := range corners {
		g.Vertices = append(g.Vertices, mesh.Vertex{
			Position: common.TransformPoint(o.LocalToWorld, c.pos.Vec3(0)),
			Normal:   normal,
			UV:       c.uv,
			Color:    o.Color,
		})
	}
	g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
}

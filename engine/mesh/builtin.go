package mesh

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Rectangle returns a two-triangle quad through p1..p4 (in winding order) with UVs running
// (0,0) at p1 to (1,1) at p3.
func Rectangle(p1, p2, p3, p4 mgl32.Vec3) Geometry {
	g := Geometry{
		Vertices: []Vertex{At(p1), At(p2), At(p3), At(p4)},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
	g.Vertices[0].UV = mgl32.Vec2{0, 0}
	g.Vertices[1].UV = mgl32.Vec2{1, 0}
	g.Vertices[2].UV = mgl32.Vec2{1, 1}
	g.Vertices[3].UV = mgl32.Vec2{0, 1}
	g.CalculateNormals()
	return g
}

// Surface returns the unit surface: a quad spanning [-1, 1] on x and y in the z = 0 plane.
func Surface() Geometry {
	return Rectangle(
		mgl32.Vec3{-1, 1, 0},
		mgl32.Vec3{1, 1, 0},
		mgl32.Vec3{1, -1, 0},
		mgl32.Vec3{-1, -1, 0},
	)
}

// Quad returns a quad spanning [0, 1] on x and y with v = 0 at the top edge. Glyphs and 2D
// shapes are laid out from it.
func Quad() Geometry {
	g := Rectangle(
		mgl32.Vec3{0, 1, 0},
		mgl32.Vec3{1, 1, 0},
		mgl32.Vec3{1, 0, 0},
		mgl32.Vec3{0, 0, 0},
	)
	g.Vertices[0].UV = mgl32.Vec2{0, 0}
	g.Vertices[1].UV = mgl32.Vec2{1, 0}
	g.Vertices[2].UV = mgl32.Vec2{1, 1}
	g.Vertices[3].UV = mgl32.Vec2{0, 1}
	return g
}

// Cube returns a unit cube centered on the origin with flat normals per face.
func Cube() Geometry {
	const h = 0.5
	var g Geometry
	faces := [6][4]mgl32.Vec3{
		{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}},     // top
		{{h, -h, h}, {-h, -h, h}, {-h, -h, -h}, {h, -h, -h}}, // bottom
		{{h, h, h}, {-h, h, h}, {-h, -h, h}, {h, -h, h}},     // back
		{{-h, h, -h}, {h, h, -h}, {h, -h, -h}, {-h, -h, -h}}, // front
		{{-h, h, h}, {-h, h, -h}, {-h, -h, -h}, {-h, -h, h}}, // left
		{{h, h, -h}, {h, h, h}, {h, -h, h}, {h, -h, -h}},     // right
	}
	for _, f := range faces {
		g.Append(Rectangle(f[0], f[1], f[2], f[3]))
	}
	return g
}

// Sphere returns a UV sphere of diameter 1 centered on the origin.
//
// Parameters:
//   - meridians: the number of vertical slices (at least 3)
//   - parallels: the number of horizontal bands (at least 2)
//
// Returns:
//   - Geometry: the sphere with smooth normals
func Sphere(meridians, parallels uint32) Geometry {
	meridians = max(meridians, 3)
	parallels = max(parallels, 2)

	var g Geometry
	pole := func(y, v float32) Vertex {
		vx := At(mgl32.Vec3{0, y * 0.5, 0})
		vx.Normal = mgl32.Vec3{0, y, 0}
		vx.UV = mgl32.Vec2{0.5, v}
		return vx
	}

	g.Vertices = append(g.Vertices, pole(1, 0))
	for j := range parallels - 1 {
		polar := math32.Pi * float32(j+1) / float32(parallels)
		sp, cp := math32.Sin(polar), math32.Cos(polar)
		for i := range meridians {
			azimuth := 2 * math32.Pi * float32(i) / float32(meridians)
			sa, ca := math32.Sin(azimuth), math32.Cos(azimuth)
			n := mgl32.Vec3{sp * ca, cp, sp * sa}
			vx := At(n.Mul(0.5))
			vx.Normal = n
			vx.UV = mgl32.Vec2{float32(i) / float32(meridians), float32(j+1) / float32(parallels)}
			g.Vertices = append(g.Vertices, vx)
		}
	}
	g.Vertices = append(g.Vertices, pole(-1, 1))
	bottom := uint32(len(g.Vertices) - 1)

	for i := range meridians {
		a := i + 1
		b := (i+1)%meridians + 1
		g.Indices = append(g.Indices, 0, b, a)
	}
	for j := range parallels - 2 {
		aStart := j*meridians + 1
		bStart := (j+1)*meridians + 1
		for i := range meridians {
			a := aStart + i
			a1 := aStart + (i+1)%meridians
			b := bStart + i
			b1 := bStart + (i+1)%meridians
			g.Indices = append(g.Indices, a, a1, b1, a, b1, b)
		}
	}
	last := meridians*(parallels-2) + 1
	for i := range meridians {
		a := last + i
		b := last + (i+1)%meridians
		g.Indices = append(g.Indices, bottom, a, b)
	}
	return g
}

// Grid returns a line list of size+1 lines along each of x and z on the y = 0 plane,
// spaced one unit apart. The x = 0 line is green, the z = 0 line is blue and the rest are
// translucent gray.
func Grid(size int) Geometry {
	half := float32(size / 2)
	gray := mgl32.Vec4{0.5, 0.5, 0.5, 0.5}
	line := func(a, b mgl32.Vec3, color mgl32.Vec4, g *Geometry) {
		base := uint32(len(g.Vertices))
		va, vb := At(a), At(b)
		va.Color, vb.Color = color, color
		va.Normal, vb.Normal = mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0}
		g.Vertices = append(g.Vertices, va, vb)
		g.Indices = append(g.Indices, base, base+1)
	}

	var g Geometry
	for x := -size / 2; x <= size/2; x++ {
		color := gray
		if x == 0 {
			color = mgl32.Vec4{0, 1, 0, 1}
		}
		line(mgl32.Vec3{float32(x), 0, half}, mgl32.Vec3{float32(x), 0, -half}, color, &g)
	}
	for z := -size / 2; z <= size/2; z++ {
		color := gray
		if z == 0 {
			color = mgl32.Vec4{0, 0, 1, 1}
		}
		line(mgl32.Vec3{half, 0, float32(z)}, mgl32.Vec3{-half, 0, float32(z)}, color, &g)
	}
	return g
}

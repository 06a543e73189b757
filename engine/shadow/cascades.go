package shadow

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// View is the camera volume the cascades are fitted to. Depth is the far distance the
// shadows reach, already clipped by the caller, and ViewToClip must project to it.
type View struct {
	WorldToView mgl32.Mat4
	ViewToClip  mgl32.Mat4
	Near        float32
	Depth       float32
}

// Sphere bounds one cascade's slice of the view frustum in world space.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Cascades is the per-frame result of the shadow pass consumed by the world uniform block.
// Splits are view-space distances; cascade i covers (Splits[i-1], Splits[i]].
type Cascades struct {
	WorldToShadow [device.CascadeCount]mgl32.Mat4
	Splits        [device.CascadeCount]float32
	Texels        [device.CascadeCount]float32
	Diameters     [device.CascadeCount]float32
}

// Empty returns the degenerate cascades used when no shadow pass ran: identity matrices and
// zero splits, which shaders treat as unshadowed.
func Empty() Cascades {
	var c Cascades
	for i := range c.WorldToShadow {
		c.WorldToShadow[i] = mgl32.Ident4()
	}
	return c
}

// Splits returns the far distance of every cascade, blending logarithmic and uniform
// spacing of [near, far] by coef. coef is clamped to [0, 1] and the last split is far exactly.
//
// Parameters:
//   - near: the camera near distance
//   - far: the shadow depth
//   - coef: 1 for purely logarithmic spacing, 0 for purely uniform
//
// Returns:
//   - [device.CascadeCount]float32: strictly increasing when near < far
func Splits(near, far, coef float32) [device.CascadeCount]float32 {
	c := min(max(coef, 0), 1)
	var splits [device.CascadeCount]float32
	for i := range device.CascadeCount {
		t := float32(i+1) / device.CascadeCount
		uniform := near + (far-near)*t
		logarithmic := uniform
		// a zero near plane has no logarithmic distribution
		if near > 0 {
			logarithmic = near * math32.Pow(far/near, t)
		}
		splits[i] = c*logarithmic + (1-c)*uniform
	}
	splits[device.CascadeCount-1] = far
	return splits
}

// ndcCorners are the clip-space corners of a [0, 1] depth frustum, near face first.
var ndcCorners = [8]mgl32.Vec3{
	{-1, 1, 0}, {1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{-1, 1, 1}, {1, 1, 1}, {1, -1, 1}, {-1, -1, 1},
}

// Bounds returns the bounding sphere of the frustum slice between view distances from and to.
// The radius is rounded up to a sixteenth of a unit so small camera motions keep it constant.
//
// Parameters:
//   - v: the camera volume
//   - from: the near distance of the slice
//   - to: the far distance of the slice
//
// Returns:
//   - Sphere: the world-space bounds
func Bounds(v View, from, to float32) Sphere {
	inverse := v.ViewToClip.Inv()
	var corners [8]mgl32.Vec3
	for i, c := range ndcCorners {
		corners[i] = common.TransformPoint(inverse, c)
	}

	full := v.Depth - v.Near
	tFrom, tTo := (from-v.Near)/full, (to-v.Near)/full
	for i := range 4 {
		ray := corners[i+4].Sub(corners[i])
		corners[i+4] = corners[i].Add(ray.Mul(tTo))
		corners[i] = corners[i].Add(ray.Mul(tFrom))
	}

	var center mgl32.Vec3
	for _, c := range corners {
		center = center.Add(c)
	}
	center = center.Mul(1.0 / float32(len(corners)))

	var radius float32
	for _, c := range corners {
		radius = max(radius, c.Sub(center).Len())
	}
	radius = math32.Ceil(radius*16) / 16

	return Sphere{
		Center: common.TransformPoint(v.WorldToView.Inv(), center),
		Radius: radius,
	}
}

// LightMatrices builds the light view and the texel-snapped orthographic projection that
// cover s as seen along direction. The projection's translation is quantized so the world
// origin always lands on a shadow map texel center boundary.
//
// Parameters:
//   - direction: the direction light travels in
//   - s: the cascade bounds
//   - mapSize: the shadow map resolution in texels
//
// Returns:
//   - mgl32.Mat4: the world-to-light view
//   - mgl32.Mat4: the light projection
func LightMatrices(direction mgl32.Vec3, s Sphere, mapSize uint32) (mgl32.Mat4, mgl32.Mat4) {
	dir := direction.Normalize()
	diameter := s.Radius * 2
	position := s.Center.Sub(dir.Mul(s.Radius))
	view := common.LookRotation(position, dir, common.Up)
	proj := common.OrthographicZO(diameter, diameter, 0, diameter)

	half := float32(mapSize) / 2
	origin := proj.Mul4(view).Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Mul(half)
	proj[12] += (math32.Round(origin.X()) - origin.X()) / half
	proj[13] += (math32.Round(origin.Y()) - origin.Y()) / half
	return view, proj
}

// Fit computes every cascade of v for a light travelling along direction.
//
// Parameters:
//   - v: the camera volume clipped to the shadow depth
//   - direction: the main light direction
//   - coef: the split coefficient (see Splits)
//   - mapSize: the shadow map resolution in texels
//
// Returns:
//   - Cascades: the matrices, splits, texel sizes and diameters
func Fit(v View, direction mgl32.Vec3, coef float32, mapSize uint32) Cascades {
	c := Cascades{Splits: Splits(v.Near, v.Depth, coef)}
	from := v.Near
	for i, to := range c.Splits {
		bounds := Bounds(v, from, to)
		view, proj := LightMatrices(direction, bounds, mapSize)
		diameter := bounds.Radius * 2
		c.WorldToShadow[i] = proj.Mul4(view)
		c.Texels[i] = diameter / float32(mapSize)
		c.Diameters[i] = diameter
		from = to
	}
	return c
}

package common

import "github.com/go-gl/mathgl/mgl32"

// Transform is a translation, rotation and scale applied in scale-rotate-translate order.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// IdentityTransform returns a Transform at the origin with no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix returns the local-to-parent matrix T * R * S.
func (t Transform) Matrix() mgl32.Mat4 {
	rotation := t.Rotation
	if rotation.Len() == 0 {
		rotation = mgl32.QuatIdent()
	}
	translate := mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	scale := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return translate.Mul4(rotation.Normalize().Mat4()).Mul4(scale)
}

// Move translates the transform by delta in parent space.
func (t *Transform) Move(delta mgl32.Vec3) {
	t.Position = t.Position.Add(delta)
}

// Rotate applies q after the current rotation.
func (t *Transform) Rotate(q mgl32.Quat) {
	t.Rotation = q.Mul(t.Rotation).Normalize()
}

// ScaleBy multiplies the current scale component-wise.
func (t *Transform) ScaleBy(s mgl32.Vec3) {
	t.Scale = mgl32.Vec3{t.Scale[0] * s[0], t.Scale[1] * s[1], t.Scale[2] * s[2]}
}

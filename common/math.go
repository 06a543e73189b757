package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// Up is the world up axis used for look rotations.
	Up = mgl32.Vec3{0, 1, 0}
	// Forward is the fallback up axis used when a look direction is parallel to Up.
	Forward = mgl32.Vec3{0, 0, -1}
)

// PerspectiveZO creates a right-handed perspective projection matrix that maps view depth
// to the WebGPU clip range [0, 1]. mgl32.Perspective targets the OpenGL [-1, 1] range, so the
// depth terms are written out here.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func PerspectiveZO(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)

	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1.0
	m[14] = (near * far) / (near - far)
	return m
}

// OrthographicZO creates a right-handed orthographic projection centered on the view axis.
// View depth in [near, far] in front of the eye maps to clip depth [0, 1].
//
// Parameters:
//   - width: horizontal extent of the view volume
//   - height: vertical extent of the view volume
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func OrthographicZO(width, height, near, far float32) mgl32.Mat4 {
	m := mgl32.Ident4()
	m[0] = 2.0 / width
	m[5] = 2.0 / height
	m[10] = -1.0 / (far - near)
	m[14] = -near / (far - near)
	return m
}

// LookRotation builds a view matrix for an eye at position looking along dir.
// When dir is (nearly) parallel to up, Forward is used as the up axis instead so the
// basis never degenerates.
//
// Parameters:
//   - position: eye position in world space
//   - dir: look direction (need not be normalized)
//   - up: preferred up axis
//
// Returns:
//   - mgl32.Mat4: the world-to-view matrix
func LookRotation(position, dir, up mgl32.Vec3) mgl32.Mat4 {
	d := dir.Normalize()
	if math32.Abs(d.Dot(up.Normalize())) > 0.999 {
		up = Forward
		if math32.Abs(d.Dot(up)) > 0.999 {
			up = mgl32.Vec3{1, 0, 0}
		}
	}
	return mgl32.LookAtV(position, position.Add(d), up)
}

// TransformPoint multiplies p (as a point, w = 1) by m and performs the perspective divide.
//
// Parameters:
//   - m: the transform matrix
//   - p: the point to transform
//
// Returns:
//   - mgl32.Vec3: the transformed point
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	v := m.Mul4x1(p.Vec4(1))
	if v[3] == 0 {
		return v.Vec3()
	}
	return v.Vec3().Mul(1.0 / v[3])
}

// IsFinite reports whether every element of m is a finite number.
func IsFinite(m mgl32.Mat4) bool {
	for _, v := range m {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// Coalesce returns the first non-zero value, or the zero value if all are zero.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

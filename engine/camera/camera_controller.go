package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the eye and pivot of a Camera as an orbit around the pivot. The
// camera reads both whenever it builds a view matrix, so input applied between frames shows
// up in the next one.
type CameraController interface {
	// Position returns the world-space eye.
	Position() mgl32.Vec3

	// Target returns the world-space pivot the eye looks at.
	Target() mgl32.Vec3

	// SetTarget moves the pivot, keeping radius and angles.
	SetTarget(target mgl32.Vec3)

	// Orbit turns the eye around the pivot by whole keyboard steps. Positive yaw turns
	// right and positive pitch tilts up; pitch stops at the elevation bounds.
	Orbit(yawSteps, pitchSteps float32)

	// Drag orbits by a cursor movement in pixels.
	Drag(dx, dy float32)

	// Zoom moves the eye toward the pivot for positive delta, within the radius bounds.
	Zoom(delta float32)

	// Pan slides eye and pivot together along the view's right and up axes.
	Pan(right, up float32)

	// HandleKey applies the default bindings: A/D or Left/Right orbit, W/S or Up/Down
	// tilt, Q/E or PageUp/PageDown zoom.
	//
	// Parameters:
	//   - key: a common.Key* code
	//
	// Returns:
	//   - bool: true if the key is bound
	HandleKey(key int) bool

	Radius() float32
	// Azimuth is the angle around the vertical axis, 0 looking down -Z from +Z.
	Azimuth() float32
	// Elevation is the angle above the horizontal plane.
	Elevation() float32
	MaxElevation() float32
}

package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithPerspective selects a perspective projection.
//
// Parameters:
//   - fov: vertical field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithPerspective(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = ProjectionPerspective
		c.fov = fov
	}
}

// WithOrthographic selects an orthographic projection.
//
// Parameters:
//   - height: the view volume height in world units
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithOrthographic(height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = ProjectionOrthographic
		c.orthoHeight = height
	}
}

// WithSize sets the viewport size the aspect ratio is derived from.
//
// Parameters:
//   - width, height: the viewport size in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the viewport size
func WithSize(width, height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.width, c.height = width, height
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithDepth sets the far clipping plane distance.
//
// Parameters:
//   - depth: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithDepth(depth float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.depth = depth
	}
}

// WithController attaches a controller to the camera.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}

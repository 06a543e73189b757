package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the starting distance from the pivot.
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbit.radius = radius
	}
}

// WithAzimuth sets the starting angle around the vertical axis, in radians.
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbit.azimuth = azimuth
	}
}

// WithElevation sets the starting angle above the horizontal plane, in radians.
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbit.elevation = elevation
	}
}

// WithTarget sets the pivot.
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.pivot = target
	}
}

// WithRadiusBounds limits how far Zoom can move the eye.
//
// Parameters:
//   - lo: the closest distance to the pivot
//   - hi: the farthest distance from the pivot
//
// Returns:
//   - CameraControllerOption: a function that applies the bounds to a controller
func WithRadiusBounds(lo, hi float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius, cc.maxRadius = lo, hi
	}
}

// WithZoomSpeed scales Zoom deltas.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}

// WithSensitivity sets the angle of one keyboard orbit step and the angle per dragged pixel,
// both in radians.
func WithSensitivity(step, perPixel float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.step, cc.perPixel = step, perPixel
	}
}

// WithPanSpeed scales Pan deltas.
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.panSpeed = speed
	}
}

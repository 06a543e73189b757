package camera_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPerspectiveDepthRange(t *testing.T) {
	c := camera.NewCamera(camera.WithNear(0.5), camera.WithDepth(100), camera.WithSize(1600, 900))
	proj := c.Projection()

	near := common.TransformPoint(proj, mgl32.Vec3{0, 0, -0.5})
	far := common.TransformPoint(proj, mgl32.Vec3{0, 0, -100})
	assert.InDelta(t, 0, near.Z(), 1e-5)
	assert.InDelta(t, 1, far.Z(), 1e-5)
	assert.InDelta(t, 1600.0/900.0, c.Aspect(), 1e-6)

	clipped := common.TransformPoint(c.ProjectionTo(20), mgl32.Vec3{0, 0, -20})
	assert.InDelta(t, 1, clipped.Z(), 1e-5)
}

func TestOrthographicExtents(t *testing.T) {
	c := camera.NewCamera(camera.WithOrthographic(10), camera.WithSize(200, 100), camera.WithNear(0), camera.WithDepth(50))
	assert.Equal(t, camera.ProjectionOrthographic, c.Kind())
	p := common.TransformPoint(c.Projection(), mgl32.Vec3{10, 5, -50})
	assert.InDelta(t, 1, p.X(), 1e-5)
	assert.InDelta(t, 1, p.Y(), 1e-5)
	assert.InDelta(t, 1, p.Z(), 1e-5)
}

func TestViewLooksAtTarget(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithTarget(mgl32.Vec3{1, 2, 3}), camera.WithRadius(5))
	c := camera.NewCamera(camera.WithController(ctrl))
	target := common.TransformPoint(c.View(), mgl32.Vec3{1, 2, 3})
	assert.InDelta(t, 0, target.X(), 1e-4)
	assert.InDelta(t, 0, target.Y(), 1e-4)
	assert.InDelta(t, -5, target.Z(), 1e-4)
	assert.InDelta(t, 5, c.Position().Sub(ctrl.Target()).Len(), 1e-4)
}

func TestSetSizeIgnoresZero(t *testing.T) {
	c := camera.NewCamera(camera.WithSize(400, 200))
	c.SetSize(0, 0)
	assert.InDelta(t, 2, c.Aspect(), 1e-6)
}

func TestControllerClamps(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithRadius(2), camera.WithRadiusBounds(1, 3), camera.WithZoomSpeed(10))
	ctrl.Zoom(1)
	assert.Equal(t, float32(1), ctrl.Radius())
	ctrl.Zoom(-1)
	assert.Equal(t, float32(3), ctrl.Radius())

	for range 200 {
		ctrl.Orbit(0, 1)
	}
	assert.Equal(t, ctrl.MaxElevation(), ctrl.Elevation())
}

func TestHandleKey(t *testing.T) {
	ctrl := camera.NewCameraController()
	azimuth := ctrl.Azimuth()
	assert.True(t, ctrl.HandleKey(common.KeyD))
	assert.Greater(t, ctrl.Azimuth(), azimuth)
	azimuth = ctrl.Azimuth()
	assert.True(t, ctrl.HandleKey(common.KeyRight))
	assert.Greater(t, ctrl.Azimuth(), azimuth)
	assert.False(t, ctrl.HandleKey(common.KeySpace))
}

func TestPanKeepsOrbit(t *testing.T) {
	ctrl := camera.NewCameraController()
	offset := ctrl.Position().Sub(ctrl.Target())
	ctrl.Pan(2, 1)
	assert.InDelta(t, 0, ctrl.Position().Sub(ctrl.Target()).Sub(offset).Len(), 1e-4)
	assert.NotEqual(t, mgl32.Vec3{}, ctrl.Target())
}

func TestDragUsesPixelSensitivity(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithElevation(0), camera.WithSensitivity(0.1, 0.01))
	ctrl.Drag(-10, 5)
	assert.InDelta(t, 0.1, ctrl.Azimuth(), 1e-6)
	assert.InDelta(t, 0.05, ctrl.Elevation(), 1e-6)

	ctrl.Orbit(-1, 0)
	assert.InDelta(t, 0, ctrl.Azimuth(), 1e-6)
	assert.InDelta(t, 10, ctrl.Position().Sub(ctrl.Target()).Len(), 1e-4)
}

package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// orbit is a spherical offset of the eye from the pivot.
type orbit struct {
	radius    float32
	azimuth   float32
	elevation float32
}

func (o orbit) offset() mgl32.Vec3 {
	cosElev, sinElev := math32.Cos(o.elevation), math32.Sin(o.elevation)
	return mgl32.Vec3{
		o.radius * cosElev * math32.Sin(o.azimuth),
		o.radius * sinElev,
		o.radius * cosElev * math32.Cos(o.azimuth),
	}
}

type cameraControllerImpl struct {
	mu *sync.Mutex

	pivot mgl32.Vec3
	orbit orbit

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	step      float32
	perPixel  float32
	zoomSpeed float32
	panSpeed  float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates an orbit controller 10 units from the origin, 30 degrees up.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:           &sync.Mutex{},
		orbit:        orbit{radius: 10, elevation: math32.Pi / 6},
		minRadius:    0.5,
		maxRadius:    500,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		step:         0.03,
		perPixel:     0.005,
		zoomSpeed:    1,
		panSpeed:     1,
	}
	for _, option := range options {
		option(cc)
	}
	cc.orbit.radius = clamp(cc.orbit.radius, cc.minRadius, cc.maxRadius)
	cc.orbit.elevation = clamp(cc.orbit.elevation, cc.minElevation, cc.maxElevation)
	return cc
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// turn adds yaw and pitch in radians. Caller holds the mutex.
func (cc *cameraControllerImpl) turn(yaw, pitch float32) {
	cc.orbit.azimuth += yaw
	cc.orbit.elevation = clamp(cc.orbit.elevation+pitch, cc.minElevation, cc.maxElevation)
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pivot.Add(cc.orbit.offset())
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pivot
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pivot = target
}

func (cc *cameraControllerImpl) Orbit(yawSteps, pitchSteps float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.turn(yawSteps*cc.step, pitchSteps*cc.step)
}

func (cc *cameraControllerImpl) Drag(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.turn(-dx*cc.perPixel, dy*cc.perPixel)
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit.radius = clamp(cc.orbit.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
}

// Pan uses the same right and up axes as the view matrix. Looking straight down the
// vertical axis has no right axis, so nothing moves.
func (cc *cameraControllerImpl) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	backward := cc.orbit.offset()
	r := common.Up.Cross(backward)
	if backward.Len() < 1e-8 || r.Len() < 1e-8 {
		return
	}
	r = r.Normalize()
	u := backward.Normalize().Cross(r)
	cc.pivot = cc.pivot.Add(r.Mul(right * cc.panSpeed)).Add(u.Mul(up * cc.panSpeed))
}

func (cc *cameraControllerImpl) HandleKey(key int) bool {
	switch key {
	case common.KeyA, common.KeyLeft:
		cc.Orbit(-1, 0)
	case common.KeyD, common.KeyRight:
		cc.Orbit(1, 0)
	case common.KeyW, common.KeyUp:
		cc.Orbit(0, 1)
	case common.KeyS, common.KeyDown:
		cc.Orbit(0, -1)
	case common.KeyQ, common.KeyPageUp:
		cc.Zoom(-1)
	case common.KeyE, common.KeyPageDown:
		cc.Zoom(1)
	default:
		return false
	}
	return true
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbit.radius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbit.azimuth
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbit.elevation
}

func (cc *cameraControllerImpl) MaxElevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxElevation
}
